// Pacote ids gera identificadores de lote de sorteio (ULID) e de eventos de auditoria (UUID).
package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Generator{
		entropy: ulid.Monotonic(src, 0),
	}
}

func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy).String()
}

// Sorteio identifica o lote de ganhadores de uma execução; ULID mantém a ordem temporal.
func (g *Generator) Sorteio() domain.SorteioID {
	return domain.SorteioID(g.New())
}

// Evento gera o identificador único de uma entrada de auditoria.
func (g *Generator) Evento() string {
	return uuid.NewString()
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

func DefaultGenerator() *Generator {
	defaultOnce.Do(func() {
		defaultGen = NewGenerator()
	})
	return defaultGen
}
