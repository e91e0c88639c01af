package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/marcelojr/sorteios-tv/internal/domain"
	"github.com/marcelojr/sorteios-tv/internal/platform/clock"
	redisstore "github.com/marcelojr/sorteios-tv/internal/platform/storage/redis"
)

var agora = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func evento() domain.EventoSorteio {
	return domain.EventoSorteio{
		SorteioID:       "01J00000000000000000000000",
		PromocaoID:      7,
		TotalGanhadores: 3,
		SorteadoPor:     1,
		SorteadoEm:      agora.Add(-2 * time.Second),
	}
}

func novoProcessor(contador domain.Contador) *EventoProcessor {
	return NewEventoProcessor(contador, clock.Fixo{Instante: agora}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEventoProcessorProcess(t *testing.T) {
	contador := &memContador{valores: make(map[string]int64)}
	processor := novoProcessor(contador)

	if err := processor.Process(context.Background(), evento()); err != nil {
		t.Fatalf("Process retornou erro inesperado: %v", err)
	}
	if err := processor.Process(context.Background(), evento()); err != nil {
		t.Fatalf("Process retornou erro inesperado: %v", err)
	}

	esperado := map[string]int64{
		domain.ChaveTotalSorteios:       2,
		domain.ChaveTotalGanhadores:     6,
		domain.ChavePromocoesComSorteio: 2,
	}
	for chave, valor := range esperado {
		if contador.valores[chave] != valor {
			t.Fatalf("contador %s deveria ser %d, veio %d", chave, valor, contador.valores[chave])
		}
	}
}

func TestEventoProcessorProcess_ComRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	contador := redisstore.NewContador(client, "contador")
	processor := novoProcessor(contador)

	if err := processor.Process(context.Background(), evento()); err != nil {
		t.Fatalf("Process retornou erro inesperado: %v", err)
	}

	total, err := contador.Obter(context.Background(), domain.ChaveTotalGanhadores)
	if err != nil {
		t.Fatalf("Obter retornou erro: %v", err)
	}
	if total != 3 {
		t.Fatalf("total de ganhadores deveria ser 3, veio %d", total)
	}
}

func TestEventoProcessorProcess_EventoInvalido(t *testing.T) {
	contador := &memContador{valores: make(map[string]int64)}
	processor := novoProcessor(contador)

	invalidos := []domain.EventoSorteio{
		{PromocaoID: 7, TotalGanhadores: 1},
		{SorteioID: "01J00000000000000000000000", TotalGanhadores: 1},
		{SorteioID: "01J00000000000000000000000", PromocaoID: 7, TotalGanhadores: -1},
	}
	for _, ev := range invalidos {
		err := processor.Process(context.Background(), ev)
		if !errors.Is(err, ErrEventoInvalido) {
			t.Fatalf("esperava ErrEventoInvalido para %+v, veio %v", ev, err)
		}
	}
	if len(contador.valores) != 0 {
		t.Fatalf("evento invalido nao deveria tocar contadores: %v", contador.valores)
	}
}

func TestEventoProcessorProcess_FalhaNoContador(t *testing.T) {
	contador := &memContador{valores: make(map[string]int64), falha: errors.New("redis fora")}
	processor := novoProcessor(contador)

	if err := processor.Process(context.Background(), evento()); err == nil {
		t.Fatal("esperava erro quando o contador falha")
	}
}

func TestEventoProcessorProcess_SemContador(t *testing.T) {
	processor := novoProcessor(nil)

	if err := processor.Process(context.Background(), evento()); err != nil {
		t.Fatalf("sem contador o processamento deveria seguir, veio %v", err)
	}
}

type memContador struct {
	valores map[string]int64
	falha   error
}

func (m *memContador) Incrementar(_ context.Context, chave string, delta int64) (int64, error) {
	if m.falha != nil {
		return 0, m.falha
	}
	m.valores[chave] += delta
	return m.valores[chave], nil
}

func (m *memContador) Obter(_ context.Context, chave string) (int64, error) {
	return m.valores[chave], nil
}

func (m *memContador) ObterTodos(_ context.Context, chaves []string) (map[string]int64, error) {
	out := make(map[string]int64, len(chaves))
	for _, c := range chaves {
		out[c] = m.valores[c]
	}
	return out, nil
}
