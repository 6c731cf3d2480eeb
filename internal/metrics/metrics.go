package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector agrega métricas de requisições HTTP e do fluxo de presença.
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    prometheus.Histogram
	faceVerified   prometheus.Counter
	faceRejected   prometheus.Counter
	faceErrors     prometheus.Counter
}

// NewCollector registra as métricas no registry informado.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total de requisições HTTP por método e status.",
		}, []string{"method", "status"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Latência das requisições HTTP em segundos.",
			Buckets: prometheus.DefBuckets,
		}),
		faceVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_face_verifications_confirmed_total",
			Help: "Presenças confirmadas por reconhecimento facial.",
		}),
		faceRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_face_verifications_rejected_total",
			Help: "Verificações faciais abaixo do limiar ou sem match.",
		}),
		faceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_face_verifications_errors_total",
			Help: "Falhas de comunicação com o serviço de reconhecimento.",
		}),
	}

	reg.MustRegister(c.httpRequests, c.httpLatency, c.faceVerified, c.faceRejected, c.faceErrors)
	return c
}

// RecordFaceVerified registra presença confirmada via facial.
func (c *Collector) RecordFaceVerified() { c.faceVerified.Inc() }

// RecordFaceRejected registra verificação sem reconhecimento.
func (c *Collector) RecordFaceRejected() { c.faceRejected.Inc() }

// RecordFaceError registra falha na dependência externa.
func (c *Collector) RecordFaceError() { c.faceErrors.Inc() }

// Middleware contabiliza cada requisição atendida.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		c.httpRequests.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		c.httpLatency.Observe(time.Since(start).Seconds())
	})
}

// NewRegistry devolve um registry com os coletores padrão do processo.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler expõe o endpoint /metrics para scraping.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
