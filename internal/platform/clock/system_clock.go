package clock

import (
	"time"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

type SystemClock struct{}

func NewSystemClock() SystemClock {
	return SystemClock{}
}

func (SystemClock) Agora() time.Time {
	return time.Now().UTC()
}

// Fixo devolve sempre o mesmo instante; usado em testes e replays.
type Fixo struct {
	Instante time.Time
}

func (f Fixo) Agora() time.Time {
	return f.Instante
}

var (
	_ domain.Clock = SystemClock{}
	_ domain.Clock = Fixo{}
)
