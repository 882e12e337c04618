package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/revision"
	"gardu-monitor-backend/internal/store"
)

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

// Payload is the JSON document delivered to the service worker.
type Payload struct {
	Title         string  `json:"title"`
	Body          string  `json:"body"`
	MeasurementID int64   `json:"measurementId"`
	SubstationID  int64   `json:"substationId"`
	OldValue      float64 `json:"oldValue"`
	NewValue      float64 `json:"newValue"`
}

// WorkerPool fans revision results out to subscribed browsers.
type WorkerPool struct {
	size    int
	jobs    chan revision.Result
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size, queueSize int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan revision.Result, queueSize),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case res := <-wp.jobs:
			wp.notifySubstation(ctx, res)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a revision for delivery. It never blocks; when the queue is
// full the event is dropped.
func (wp *WorkerPool) Dispatch(res revision.Result) {
	select {
	case wp.jobs <- res:
	default:
		log.Printf("notification queue full, dropping revision event for measurement %d", res.OldID)
	}
}

func (wp *WorkerPool) notifySubstation(ctx context.Context, res revision.Result) {
	subscriptions, err := wp.store.SubscriptionsForSubstation(ctx, res.SubstationID)
	if err != nil {
		log.Printf("Error fetching subscriptions for substation %d: %v", res.SubstationID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := fmt.Sprintf("#%d", res.SubstationID)
	if sub, err := wp.store.GetSubstation(ctx, res.SubstationID); err != nil {
		log.Printf("Error fetching substation %d: %v", res.SubstationID, err)
	} else if sub.Name != "" {
		label = sub.Name
	}

	payload, err := json.Marshal(Payload{
		Title:         fmt.Sprintf("Gardu %s", label),
		Body:          fmt.Sprintf("Unbalance %s %s %s dikoreksi %.2f%% → %.2f%% oleh %s", periodLabel(res.Period), res.RowCode, res.Month, res.OldValue, res.NewValue, res.ChangedBy),
		MeasurementID: res.NewID,
		SubstationID:  res.SubstationID,
		OldValue:      res.OldValue,
		NewValue:      res.NewValue,
	})
	if err != nil {
		log.Printf("Error encoding notification payload: %v", err)
		return
	}

	log.Printf("Sending %d notifications for substation %d", len(subscriptions), res.SubstationID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func periodLabel(p model.Period) string {
	if p == model.PeriodMalam {
		return "malam"
	}
	return "siang"
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
