package sorteio

import (
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// Premio rotula a posição: 1 -> "1st place", 22 -> "22nd place".
func Premio(posicao int) string {
	return humanize.Ordinal(posicao) + " place"
}

// sortearGanhadores faz Fisher-Yates parcial sobre uma cópia: as n primeiras
// posições saem sem reposição e na ordem em que foram sorteadas.
func sortearGanhadores(elegiveis []domain.Participante, n int, rnd domain.Aleatorio) []domain.Participante {
	pool := slices.Clone(elegiveis)
	for i := range n {
		j := i + rnd.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
