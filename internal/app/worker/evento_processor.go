// Pacote worker consome os eventos de sorteio confirmados e mantém os totais no Redis.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/sorteios-tv/internal/app/sorteio"
	"github.com/marcelojr/sorteios-tv/internal/domain"
	"github.com/marcelojr/sorteios-tv/internal/platform/metrics"
)

var ErrEventoInvalido = errors.New("evento de sorteio invalido")

// EventoProcessor aplica cada EventoSorteio aos contadores e às métricas.
type EventoProcessor struct {
	contador domain.Contador
	clock    domain.Clock
	logger   *slog.Logger
}

func NewEventoProcessor(contador domain.Contador, clock domain.Clock, logger *slog.Logger) *EventoProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventoProcessor{
		contador: contador,
		clock:    clock,
		logger:   logger,
	}
}

func (p *EventoProcessor) Process(ctx context.Context, evento domain.EventoSorteio) error {
	start := time.Now()

	if evento.SorteioID == "" || evento.PromocaoID == 0 || evento.TotalGanhadores < 0 {
		return fmt.Errorf("worker: %w: sorteio=%q promocao=%d", ErrEventoInvalido, evento.SorteioID, evento.PromocaoID)
	}

	if p.contador != nil {
		if err := sorteio.AtualizarContadores(ctx, p.contador, evento); err != nil {
			return fmt.Errorf("worker: %w", err)
		}
	}

	atraso := time.Duration(0)
	if !evento.SorteadoEm.IsZero() {
		atraso = p.clock.Agora().Sub(evento.SorteadoEm)
	}
	p.logger.Info("evento de sorteio processado",
		"sorteio_id", evento.SorteioID,
		"promocao_id", evento.PromocaoID,
		"ganhadores", evento.TotalGanhadores,
		"atraso_ms", atraso.Milliseconds(),
	)

	metrics.IncEventoProcessado()
	metrics.ObserveEventoDuration(time.Since(start).Seconds())
	return nil
}
