// Pacote limitador controla a frequência de pedidos de sorteio por operador e origem.
package limitador

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// Redis conta pedidos em janela fixa: INCR na chave e EXPIRE no primeiro hit.
type Redis struct {
	client *redis.Client
	limite int
	janela time.Duration
	prefix string
}

func NewRedis(client *redis.Client, limite int, janela time.Duration, prefix string) *Redis {
	if prefix == "" {
		prefix = "ratelimit:sorteio"
	}
	return &Redis{
		client: client,
		limite: limite,
		janela: janela,
		prefix: prefix,
	}
}

// Permitir devolve *domain.LimiteExcedidoError quando a chave estourou a janela.
// Falhas do Redis voltam como erro comum; quem chama decide se segue.
func (r *Redis) Permitir(ctx context.Context, chave string) error {
	if r.client == nil || r.limite <= 0 || r.janela <= 0 {
		return nil
	}

	key := r.buildKey(chave)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("limitador: incrementar: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.janela).Err(); err != nil {
			return fmt.Errorf("limitador: definir expiracao: %w", err)
		}
	}

	if count <= int64(r.limite) {
		return nil
	}

	restante, err := r.client.TTL(ctx, key).Result()
	if err != nil || restante <= 0 {
		restante = r.janela
	}
	return &domain.LimiteExcedidoError{RetryAfter: restante}
}

func (r *Redis) buildKey(chave string) string {
	hash := sha1.Sum([]byte(chave))
	return r.prefix + ":" + hex.EncodeToString(hash[:])
}

// Noop libera tudo; usado com RATE_LIMIT_ENABLED=false ou sem Redis.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Permitir(context.Context, string) error {
	return nil
}

var (
	_ domain.LimitadorSorteio = (*Redis)(nil)
	_ domain.LimitadorSorteio = Noop{}
)
