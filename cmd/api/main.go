// Executável principal da API: carrega a configuração, inicializa dependências e sobe o servidor HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/marcelojr/sorteios-tv/internal/app/httpapi"
	"github.com/marcelojr/sorteios-tv/internal/app/sorteio"
	"github.com/marcelojr/sorteios-tv/internal/domain"
	"github.com/marcelojr/sorteios-tv/internal/platform/auth"
	"github.com/marcelojr/sorteios-tv/internal/platform/clock"
	"github.com/marcelojr/sorteios-tv/internal/platform/config"
	"github.com/marcelojr/sorteios-tv/internal/platform/health"
	"github.com/marcelojr/sorteios-tv/internal/platform/ids"
	"github.com/marcelojr/sorteios-tv/internal/platform/limitador"
	"github.com/marcelojr/sorteios-tv/internal/platform/logger"
	"github.com/marcelojr/sorteios-tv/internal/platform/migrations"
	postgresstorage "github.com/marcelojr/sorteios-tv/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/sorteios-tv/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuracao invalida", "err", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("falha ao conectar no postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao resgatar sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("falha na migracao automatica", "err", err)
		}
	}

	// Sem Redis o sorteio segue funcionando: sem fila, sem contadores e sem limite.
	var (
		redisClient *goredis.Client
		fila        domain.Fila
		contador    domain.Contador
		limite      domain.LimitadorSorteio = limitador.NewNoop()
	)
	if cfg.RedisHabilitado() {
		redisClient, err = redisstorage.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("falha ao conectar no redis", "err", err)
		}
		defer redisClient.Close()

		fila = redisstorage.NewFila(redisClient, cfg.FilaKey)
		contador = redisstorage.NewContador(redisClient, cfg.ContadorKeyPrefix)
		if cfg.RateLimitEnabled {
			limite = limitador.NewRedis(redisClient, cfg.RateLimitMaxSorteios, cfg.RateLimitWindow(), cfg.RateLimitKeyPrefix)
		}
	} else {
		logger.Warn("REDIS_ADDR vazio: fila, contadores e limite de sorteios desligados")
	}

	servico := sorteio.NewService(sorteio.Deps{
		Promocoes:     postgresstorage.NewPromocaoRepository(db),
		Participantes: postgresstorage.NewParticipanteRepository(db),
		Ganhadores:    postgresstorage.NewGanhadorRepository(db),
		Store:         postgresstorage.NewSorteioStore(db),
		Limitador:     limite,
		Contador:      contador,
		Fila:          fila,
		Clock:         clock.NewSystemClock(),
		IDs:           ids.NewGenerator(),
		Logger:        logger.L(),
	}, sorteio.Config{
		RolesSorteio:     cfg.RolesSorteio,
		LimpezaTimeout:   cfg.LimpezaTimeout,
		EncerradasLimite: cfg.EncerradasLimite,
	})

	autenticador := auth.NewJWT(cfg.JWTSecret, postgresstorage.NewUsuarioRepository(db))
	checker := health.NewChecker(sqlDB, redisClient)

	router := httpapi.NewRouter(httpapi.New(servico, autenticador, logger.L()))
	router.Get("/healthz", checker.LiveHandler())
	router.Get("/readyz", checker.ReadyHandler())
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("erro ao encerrar servidor", "err", err)
		}
	}()

	logger.Info("api ouvindo", "addr", cfg.HTTPAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("erro no servidor", "err", err)
	}
	logger.Info("api finalizada")
}
