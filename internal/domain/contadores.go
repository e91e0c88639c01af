package domain

// Chaves dos contadores agregados mantidos no Redis.
const (
	ChaveTotalSorteios       = "sorteios:total"
	ChaveTotalGanhadores     = "ganhadores:total"
	ChavePromocoesComSorteio = "promocoes:com_sorteio"
)

var ChavesEstatisticas = []string{ChaveTotalSorteios, ChaveTotalGanhadores, ChavePromocoesComSorteio}
