// Pacote metrics registra os coletores Prometheus da API e do worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sorteioRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sorteio_requests_total",
		Help: "Total de pedidos de sorteio por resultado",
	}, []string{"status"})

	sorteioDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sorteio_duration_seconds",
		Help:    "Tempo total de execucao de um sorteio, incluindo a transacao",
		Buckets: prometheus.DefBuckets,
	})

	ganhadoresSorteadosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sorteio_ganhadores_total",
		Help: "Total de ganhadores gravados por sorteios confirmados",
	})

	limpezaFalhasTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sorteio_limpeza_falhas_total",
		Help: "Falhas ao limpar a flag is_drawing depois de um sorteio com erro",
	})

	eventosProcessadosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sorteio_eventos_processados_total",
		Help: "Eventos de sorteio consumidos pelo worker",
	})

	eventoProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sorteio_evento_processing_duration_seconds",
		Help:    "Tempo para processar um evento de sorteio no worker",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveSorteio(status string, seconds float64) {
	sorteioRequestsTotal.WithLabelValues(status).Inc()
	sorteioDuration.Observe(seconds)
}

func AddGanhadores(n int) {
	ganhadoresSorteadosTotal.Add(float64(n))
}

func IncLimpezaFalha() {
	limpezaFalhasTotal.Inc()
}

func IncEventoProcessado() {
	eventosProcessadosTotal.Inc()
}

func ObserveEventoDuration(seconds float64) {
	eventoProcessingDuration.Observe(seconds)
}
