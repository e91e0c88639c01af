package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

const esperaBRPop = 5 * time.Second

// Fila é uma lista Redis: LPUSH publica, BRPOP consome em ordem de chegada.
// Payloads que não decodificam vão para <key>:invalidos e o consumo segue.
type Fila struct {
	client *redis.Client
	key    string
}

func NewFila(client *redis.Client, key string) *Fila {
	return &Fila{client: client, key: key}
}

func (f *Fila) PublicarSorteio(ctx context.Context, evento domain.EventoSorteio) error {
	payload, err := json.Marshal(evento)
	if err != nil {
		return fmt.Errorf("redis fila: serializar evento %s: %w", evento.SorteioID, err)
	}
	if err := f.client.LPush(ctx, f.key, payload).Err(); err != nil {
		return fmt.Errorf("redis fila: publicar evento %s: %w", evento.SorteioID, err)
	}
	return nil
}

// ConsumirSorteios bloqueia até o contexto acabar ou o handler devolver erro.
func (f *Fila) ConsumirSorteios(ctx context.Context, handler func(context.Context, domain.EventoSorteio) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := f.client.BRPop(ctx, esperaBRPop, f.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("redis fila: consumir: %w", err)
		}

		if len(res) != 2 {
			continue
		}

		var evento domain.EventoSorteio
		if err := json.Unmarshal([]byte(res[1]), &evento); err != nil {
			if errPush := f.client.LPush(ctx, f.chaveInvalidos(), res[1]).Err(); errPush != nil {
				return fmt.Errorf("redis fila: descartar payload invalido: %w", errPush)
			}
			continue
		}

		if err := handler(ctx, evento); err != nil {
			return err
		}
	}
}

func (f *Fila) chaveInvalidos() string {
	return f.key + ":invalidos"
}

var _ domain.Fila = (*Fila)(nil)
