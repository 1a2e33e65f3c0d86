package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"openair-backend/internal/airquality"
	"openair-backend/internal/metrics"
	"openair-backend/internal/model"
	"openair-backend/internal/store"
)

// Alert announces that the air-quality band got worse.
type Alert struct {
	Previous airquality.Band `json:"previous"`
	Band     airquality.Band `json:"band"`
	AQI      float64         `json:"aqi"`
	At       time.Time       `json:"at"`
}

// Message is the human-readable notification text.
func (a Alert) Message() string {
	return fmt.Sprintf("Air quality is now %s (AQI %.0f)", a.Band.Label(), a.AQI)
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Alert Alert  `json:"alert"`
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending alerts.
type WorkerPool struct {
	size    int
	jobs    chan Alert
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewWorkerPool creates a new worker pool. m may be nil.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger, m *metrics.Collector) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alert, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
		metrics: m,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.logger.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case alert := <-wp.jobs:
			log.Info("processing alert", zap.String("band", string(alert.Band)), zap.Float64("aqi", alert.AQI))
			wp.broadcast(ctx, alert)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues an alert. It never blocks the caller: when every worker is
// busy and the queue is full the alert is dropped.
func (wp *WorkerPool) Dispatch(alert Alert) bool {
	select {
	case wp.jobs <- alert:
		return true
	default:
		wp.logger.Warn("alert queue full, dropping alert", zap.String("band", string(alert.Band)))
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Alert {
	return wp.jobs
}

func (wp *WorkerPool) broadcast(ctx context.Context, alert Alert) {
	subscriptions, err := wp.store.ListSubscriptions(ctx)
	if err != nil {
		wp.logger.Error("failed to fetch subscriptions", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{Title: "OpenAir", Body: alert.Message(), Alert: alert})
	if err != nil {
		wp.logger.Error("failed to encode alert", zap.Error(err))
		return
	}

	wp.logger.Info("sending alerts", zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		if wp.sendNotification(ctx, sub, payload) && wp.metrics != nil {
			wp.metrics.AlertsSent.WithLabelValues(string(alert.Band)).Inc()
		}
	}
}

// sendNotification delivers one push and reports whether it was accepted.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) bool {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return false
	}
	return resp.StatusCode < http.StatusMultipleChoices
}
