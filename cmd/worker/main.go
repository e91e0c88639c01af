// Worker assíncrono que consome os sorteios confirmados da fila e mantém contadores e métricas.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/sorteios-tv/internal/app/worker"
	"github.com/marcelojr/sorteios-tv/internal/domain"
	"github.com/marcelojr/sorteios-tv/internal/platform/clock"
	"github.com/marcelojr/sorteios-tv/internal/platform/config"
	"github.com/marcelojr/sorteios-tv/internal/platform/health"
	"github.com/marcelojr/sorteios-tv/internal/platform/logger"
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

	// Redis é obrigatório aqui porque fila e contador vivem sobre a mesma instância.
	if !cfg.RedisHabilitado() {
		logger.Fatal("worker exige REDIS_ADDR")
	}
	redisClient, err := redisstorage.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("falha ao conectar no redis", "err", err)
	}
	defer redisClient.Close()

	contador := redisstorage.NewContador(redisClient, cfg.ContadorKeyPrefix)
	fila := redisstorage.NewFila(redisClient, cfg.FilaKey)
	checker := health.NewChecker(nil, redisClient)

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", checker.LiveHandler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics ouvindo", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("erro no servidor de metrics do worker", "err", err)
			}
		}()
	}

	processor := worker.NewEventoProcessor(contador, clock.NewSystemClock(), logger.L())

	logger.Info("worker iniciado, aguardando sorteios")
	err = fila.ConsumirSorteios(ctx, func(ctx context.Context, evento domain.EventoSorteio) error {
		// Um evento com falha não derruba o consumo; o log guarda o id para reprocesso manual.
		if err := processor.Process(ctx, evento); err != nil {
			logger.Error("erro ao processar sorteio", "sorteio_id", evento.SorteioID, "err", err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker finalizado com erro", "err", err)
	}

	logger.Info("worker finalizado")
}
