package ids

import (
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Sorteio_DeveGerarULIDsCrescentes(t *testing.T) {
	gen := NewGenerator()

	anterior := gen.Sorteio()
	for i := 0; i < 100; i++ {
		atual := gen.Sorteio()
		_, err := ulid.ParseStrict(string(atual))
		require.NoError(t, err)
		assert.Greater(t, string(atual), string(anterior))
		anterior = atual
	}
}

func TestGenerator_Evento_DeveGerarUUID(t *testing.T) {
	gen := DefaultGenerator()

	a := gen.Evento()
	b := gen.Evento()

	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
