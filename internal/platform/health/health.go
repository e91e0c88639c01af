// Pacote health expõe liveness e readiness com as dependências do serviço.
package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

type dependencia struct {
	nome string
	ping func(ctx context.Context) error
}

// Checker consulta as dependências na ordem em que foram registradas.
type Checker struct {
	deps    []dependencia
	timeout time.Duration
}

func NewChecker(db *sql.DB, redisClient *redis.Client) *Checker {
	c := &Checker{timeout: 2 * time.Second}
	if db != nil {
		c.deps = append(c.deps, dependencia{nome: "postgres", ping: db.PingContext})
	}
	if redisClient != nil {
		c.deps = append(c.deps, dependencia{nome: "redis", ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	return c
}

type statusResponse struct {
	Status string            `json:"status"`
	Falhas map[string]string `json:"falhas,omitempty"`
}

// LiveHandler só confirma que o processo responde.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		escrever(w, http.StatusOK, statusResponse{Status: "ok"})
	}
}

// ReadyHandler devolve 503 listando cada dependência que falhou.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()

		falhas := make(map[string]string)
		for _, dep := range c.deps {
			if err := dep.ping(ctx); err != nil {
				falhas[dep.nome] = "indisponivel"
			}
		}

		if len(falhas) > 0 {
			escrever(w, http.StatusServiceUnavailable, statusResponse{Status: "indisponivel", Falhas: falhas})
			return
		}
		escrever(w, http.StatusOK, statusResponse{Status: "ok"})
	}
}

func escrever(w http.ResponseWriter, status int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
