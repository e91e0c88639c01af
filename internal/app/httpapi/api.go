// Pacote httpapi expõe os handlers REST do motor de sorteio.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marcelojr/sorteios-tv/internal/app/sorteio"
	"github.com/marcelojr/sorteios-tv/internal/domain"
)

const mensagemErroInterno = "Erro interno ao processar a requisicao"

type API struct {
	service domain.SorteioService
	auth    domain.Autenticador
	logger  *slog.Logger
}

func New(service domain.SorteioService, auth domain.Autenticador, logger *slog.Logger) *API {
	return &API{service: service, auth: auth, logger: logger}
}

// NewRouter monta o chi com os middlewares padrão e as rotas da API.
// Health e métricas são pendurados pelo binário.
func NewRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.logRequest)
	r.Use(middleware.Recoverer)
	api.Register(r)
	return r
}

func (a *API) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/sorteios/estatisticas", a.estatisticas)
		r.Get("/sorteios/encerradas", a.listarEncerradas)
		r.Get("/promocoes/{id}/ganhadores", a.listarGanhadores)

		r.Group(func(r chi.Router) {
			r.Use(a.autenticar)
			r.Post("/sorteios", a.sortear)
			r.Get("/sorteios/travados", a.listarTravadas)
			r.With(exigirRole(domain.RoleAdmin)).Get("/promocoes/{id}/participantes-disponiveis", a.participantesDisponiveis)
			r.Delete("/ganhadores/{id}", a.cancelarGanhador)
		})
	})
}

type sorteioRequest struct {
	PromocaoID int64 `json:"promocaoId"`
}

type sorteioResponse struct {
	Success   bool                      `json:"success"`
	Data      []domain.GanhadorSorteado `json:"data"`
	Total     int                       `json:"total"`
	SorteioID domain.SorteioID          `json:"sorteio_id"`
	Message   string                    `json:"message"`
}

func (a *API) sortear(w http.ResponseWriter, r *http.Request) {
	var req sorteioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.logger.Warn("payload invalido ao sortear", "err", err)
		responderFalha(w, http.StatusBadRequest, "payload invalido")
		return
	}
	if req.PromocaoID <= 0 {
		a.responderErro(w, r, sorteio.ErrPromocaoInvalida)
		return
	}

	pedido := domain.PedidoSorteio{
		PromocaoID: domain.PromocaoID(req.PromocaoID),
		Principal:  principalDe(r.Context()),
		OrigemIP:   origemIP(r),
	}
	resultado, err := a.service.Sortear(r.Context(), pedido)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	responderJSON(w, http.StatusOK, sorteioResponse{
		Success:   true,
		Data:      resultado.Ganhadores,
		Total:     len(resultado.Ganhadores),
		SorteioID: resultado.SorteioID,
		Message:   fmt.Sprintf("Sorteio realizado com sucesso! %d ganhador(es) selecionado(s).", len(resultado.Ganhadores)),
	})
}

func (a *API) listarGanhadores(w http.ResponseWriter, r *http.Request) {
	id, ok := a.promocaoDaURL(w, r)
	if !ok {
		return
	}
	ganhadores, err := a.service.ListarGanhadores(r.Context(), id)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderDados(w, ganhadores)
}

func (a *API) participantesDisponiveis(w http.ResponseWriter, r *http.Request) {
	id, ok := a.promocaoDaURL(w, r)
	if !ok {
		return
	}
	participantes, err := a.service.ParticipantesDisponiveis(r.Context(), id)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    participantes,
		"total":   len(participantes),
	})
}

func (a *API) listarEncerradas(w http.ResponseWriter, r *http.Request) {
	limite := 0
	if raw := r.URL.Query().Get("limite"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			responderFalha(w, http.StatusBadRequest, "limite invalido")
			return
		}
		limite = n
	}
	encerradas, err := a.service.ListarEncerradas(r.Context(), limite)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderDados(w, encerradas)
}

func (a *API) estatisticas(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.Estatisticas(r.Context())
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderDados(w, stats)
}

func (a *API) listarTravadas(w http.ResponseWriter, r *http.Request) {
	promocoes, err := a.service.ListarTravadas(r.Context(), principalDe(r.Context()))
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderDados(w, promocoes)
}

func (a *API) cancelarGanhador(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		responderFalha(w, http.StatusBadRequest, "id do ganhador invalido")
		return
	}
	ganhador, err := a.service.CancelarGanhador(r.Context(), domain.GanhadorID(id), principalDe(r.Context()), origemIP(r))
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    ganhador,
		"message": "Ganhador cancelado com sucesso",
	})
}

func (a *API) promocaoDaURL(w http.ResponseWriter, r *http.Request) (domain.PromocaoID, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		a.responderErro(w, r, sorteio.ErrPromocaoInvalida)
		return 0, false
	}
	return domain.PromocaoID(id), true
}

type principalKey struct{}

// autenticar resolve o principal e o guarda no contexto da requisição.
func (a *API) autenticar(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.auth.Autenticar(r.Context(), r)
		if err != nil {
			a.responderErro(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func exigirRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := principalDe(r.Context())
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			responderFalha(w, http.StatusForbidden, sorteio.ErrNaoAutorizado.Error())
		})
	}
}

func principalDe(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey{}).(domain.Principal)
	return p
}

// origemIP segue X-Forwarded-For, depois X-Real-IP, depois a conexão.
func origemIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		primeiro, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(primeiro); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *API) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		inicio := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duracao_ms", time.Since(inicio).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type falhaResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Available *int   `json:"available,omitempty"`
	Required  *int   `json:"required,omitempty"`
}

func (a *API) responderErro(w http.ResponseWriter, r *http.Request, err error) {
	var insuf *sorteio.ParticipantesInsuficientesError
	var limite *domain.LimiteExcedidoError

	switch {
	case errors.As(err, &insuf):
		a.logger.Warn("participantes insuficientes", "disponiveis", insuf.Disponiveis, "necessarios", insuf.Necessarios)
		responderJSON(w, http.StatusBadRequest, falhaResponse{
			Message:   insuf.Error(),
			Available: &insuf.Disponiveis,
			Required:  &insuf.Necessarios,
		})
		return
	case errors.Is(err, sorteio.ErrLimiteSorteios):
		retry := 60
		if errors.As(err, &limite) {
			retry = int(math.Ceil(limite.RetryAfter.Seconds()))
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		responderFalha(w, http.StatusTooManyRequests, sorteio.ErrLimiteSorteios.Error())
		return
	}

	status, mensagem := statusDoErro(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("erro interno", "err", err, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
	} else {
		a.logger.Warn("requisicao recusada", "err", err, "status", status, "path", r.URL.Path)
	}
	responderFalha(w, status, mensagem)
}

func statusDoErro(err error) (int, string) {
	erros := []struct {
		alvo   error
		status int
	}{
		{sorteio.ErrPromocaoInvalida, http.StatusBadRequest},
		{sorteio.ErrPromocaoEncerrada, http.StatusBadRequest},
		{sorteio.ErrPromocaoNaoEncontrada, http.StatusNotFound},
		{sorteio.ErrGanhadorNaoEncontrado, http.StatusNotFound},
		{sorteio.ErrLockOcupado, http.StatusConflict},
		{sorteio.ErrSorteioEmAndamento, http.StatusConflict},
		{sorteio.ErrNaoAutorizado, http.StatusForbidden},
		{domain.ErrNaoAutenticado, http.StatusUnauthorized},
	}
	for _, e := range erros {
		if errors.Is(err, e.alvo) {
			return e.status, e.alvo.Error()
		}
	}
	return http.StatusInternalServerError, mensagemErroInterno
}

func responderDados(w http.ResponseWriter, data any) {
	responderJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func responderFalha(w http.ResponseWriter, status int, mensagem string) {
	responderJSON(w, status, falhaResponse{Message: mensagem})
}

func responderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
