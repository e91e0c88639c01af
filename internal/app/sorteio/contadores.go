package sorteio

import (
	"context"
	"fmt"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// AtualizarContadores aplica um sorteio confirmado aos totais do Redis.
// Usado pelo worker e, sem fila, direto pelo serviço após o commit.
func AtualizarContadores(ctx context.Context, contador domain.Contador, evento domain.EventoSorteio) error {
	incrementos := []struct {
		chave string
		delta int64
	}{
		{domain.ChaveTotalSorteios, 1},
		{domain.ChaveTotalGanhadores, int64(evento.TotalGanhadores)},
		{domain.ChavePromocoesComSorteio, 1},
	}
	for _, inc := range incrementos {
		if _, err := contador.Incrementar(ctx, inc.chave, inc.delta); err != nil {
			return fmt.Errorf("sorteio %s: contador %s: %w", evento.SorteioID, inc.chave, err)
		}
	}
	return nil
}
