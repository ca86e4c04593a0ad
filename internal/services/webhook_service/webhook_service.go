package webhookservice

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"appdist/internal/metrics"
	"appdist/internal/models"

	"gorm.io/gorm"
)

// deliveryAttempts bounds per-target retries. The backoff doubles from
// retryBaseDelay between attempts.
const (
	deliveryAttempts = 3
	retryBaseDelay   = 2 * time.Second
)

type job struct {
	Event   string
	URL     string
	Payload []byte
}

// WebhookService fans out post-commit events to a channel's configured
// targets. Dispatch is fire-and-forget: Trigger enqueues and returns,
// a bounded worker pool delivers, and one target's failure never touches
// another target or the committed release.
type WebhookService struct {
	db         *gorm.DB
	client     *http.Client
	jobs       chan job
	wg         sync.WaitGroup
	metrics    metrics.Metrics
	retryDelay time.Duration

	closeOnce sync.Once
}

func NewWebhookService(database *gorm.DB, workers int, m metrics.Metrics) *WebhookService {
	if workers <= 0 {
		workers = 4
	}
	if m == nil {
		m = metrics.Noop{}
	}
	s := &WebhookService{
		db:         database,
		client:     &http.Client{Timeout: 10 * time.Second},
		jobs:       make(chan job, 256),
		metrics:    m,
		retryDelay: retryBaseDelay,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Trigger loads the channel's enabled targets for the event and enqueues
// one delivery per target. Never blocks the caller: when the queue is
// full the event is dropped with a log line rather than stalling an
// upload response.
func (s *WebhookService) Trigger(event string, channel *models.Channel, release *models.Release) {
	var hooks []models.Webhook
	query := s.db.Where("channel_id = ? AND enabled = ?", channel.ID, true)
	switch event {
	case "upload":
		query = query.Where("on_upload = ?", true)
	case "delete":
		query = query.Where("on_delete = ?", true)
	}
	if err := query.Find(&hooks).Error; err != nil {
		log.Printf("[webhook] loading targets for channel %s: %v", channel.Slug, err)
		return
	}
	if len(hooks) == 0 {
		return
	}

	payload, err := json.Marshal(eventPayload(event, channel, release))
	if err != nil {
		log.Printf("[webhook] encoding payload: %v", err)
		return
	}

	for _, hook := range hooks {
		select {
		case s.jobs <- job{Event: event, URL: hook.URL, Payload: payload}:
		default:
			s.metrics.IncWebhookDelivery("dropped")
			log.Printf("[webhook] queue full, dropping %s event for %s", event, hook.URL)
		}
	}
}

// Close drains the queue and stops the workers.
func (s *WebhookService) Close() {
	s.closeOnce.Do(func() {
		close(s.jobs)
	})
	s.wg.Wait()
}

func (s *WebhookService) worker() {
	defer s.wg.Done()
	for j := range s.jobs {
		s.deliver(j)
	}
}

func (s *WebhookService) deliver(j job) {
	var lastErr error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(s.retryDelay << (attempt - 2))
		}
		resp, err := s.client.Post(j.URL, "application/json", bytes.NewReader(j.Payload))
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 300 {
			s.metrics.IncWebhookDelivery("ok")
			return
		}
		lastErr = &statusError{code: resp.StatusCode}
	}
	s.metrics.IncWebhookDelivery("failed")
	log.Printf("[webhook] giving up on %s event to %s: %v", j.Event, j.URL, lastErr)
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}

func eventPayload(event string, channel *models.Channel, release *models.Release) map[string]any {
	payload := map[string]any{
		"event":        event,
		"channel":      channel.Name,
		"channel_slug": channel.Slug,
		"device_type":  channel.DeviceType,
	}
	if release != nil {
		payload["release"] = map[string]any{
			"id":              release.ID,
			"version":         release.Version,
			"release_version": release.ReleaseVersion,
			"build_version":   release.BuildVersion,
			"bundle_id":       release.BundleID,
		}
	}
	return payload
}
