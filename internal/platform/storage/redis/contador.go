package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// Contador mantém os totais de sorteios com chaves prefixadas.
type Contador struct {
	client *redis.Client
	prefix string
}

func NewContador(client *redis.Client, prefix string) *Contador {
	return &Contador{client: client, prefix: prefix}
}

// Incrementar aceita delta negativo; cancelamentos descontam ganhadores.
func (c *Contador) Incrementar(ctx context.Context, chave string, delta int64) (int64, error) {
	total, err := c.client.IncrBy(ctx, c.key(chave), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redis contador: incrementar %s: %w", chave, err)
	}
	return total, nil
}

func (c *Contador) Obter(ctx context.Context, chave string) (int64, error) {
	val, err := c.client.Get(ctx, c.key(chave)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis contador: obter %s: %w", chave, err)
	}
	return val, nil
}

// ObterTodos lê as chaves num único MGET; ausentes valem zero.
func (c *Contador) ObterTodos(ctx context.Context, chaves []string) (map[string]int64, error) {
	resultado := make(map[string]int64, len(chaves))
	if len(chaves) == 0 {
		return resultado, nil
	}

	keys := make([]string, len(chaves))
	for i, ch := range chaves {
		keys[i] = c.key(ch)
	}

	valores, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis contador: mget: %w", err)
	}

	for i, raw := range valores {
		num, err := paraInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("redis contador: valor invalido em %s: %w", chaves[i], err)
		}
		resultado[chaves[i]] = num
	}
	return resultado, nil
}

func paraInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("tipo inesperado %T", raw)
	}
}

func (c *Contador) key(chave string) string {
	if c.prefix == "" {
		return chave
	}
	return c.prefix + ":" + chave
}

var _ domain.Contador = (*Contador)(nil)
