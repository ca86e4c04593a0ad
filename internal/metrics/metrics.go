package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics defines counters for the ingestion pipeline and the webhook
// notifier.
type Metrics interface {
	IncUploadReceived(platform string)
	IncUploadRejected(reason string)
	IncReleaseCreated(platform string)
	IncWebhookDelivery(status string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncUploadReceived(string)  {}
func (Noop) IncUploadRejected(string)  {}
func (Noop) IncReleaseCreated(string)  {}
func (Noop) IncWebhookDelivery(string) {}

// Prom implements Metrics with prometheus counters.
type Prom struct {
	registry        *prometheus.Registry
	uploadsReceived *prometheus.CounterVec
	uploadsRejected *prometheus.CounterVec
	releasesCreated *prometheus.CounterVec
	webhookDelivery *prometheus.CounterVec
}

func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		uploadsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appdist_uploads_received_total",
			Help: "Uploads accepted for processing, by platform.",
		}, []string{"platform"}),
		uploadsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appdist_uploads_rejected_total",
			Help: "Uploads rejected before commit, by reason.",
		}, []string{"reason"}),
		releasesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appdist_releases_created_total",
			Help: "Releases committed, by platform.",
		}, []string{"platform"}),
		webhookDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appdist_webhook_deliveries_total",
			Help: "Webhook delivery attempts, by final status.",
		}, []string{"status"}),
	}
	p.registry.MustRegister(p.uploadsReceived, p.uploadsRejected, p.releasesCreated, p.webhookDelivery)
	return p
}

func (p *Prom) IncUploadReceived(platform string) {
	p.uploadsReceived.WithLabelValues(platform).Inc()
}

func (p *Prom) IncUploadRejected(reason string) {
	p.uploadsRejected.WithLabelValues(reason).Inc()
}

func (p *Prom) IncReleaseCreated(platform string) {
	p.releasesCreated.WithLabelValues(platform).Inc()
}

func (p *Prom) IncWebhookDelivery(status string) {
	p.webhookDelivery.WithLabelValues(status).Inc()
}

// Handler exposes the registry for the /metrics route.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
