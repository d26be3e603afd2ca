package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/store"
)

// EventKind names the lifecycle moments staff can be notified about.
type EventKind string

const (
	EventWorkOrderCreated   EventKind = "work_order_created"
	EventWorkOrderApproved  EventKind = "work_order_approved"
	EventWorkOrderCompleted EventKind = "work_order_completed"
	EventReviewNeeded       EventKind = "review_needed"
)

// Event is one push-notification job. Machine is the human-readable label
// used in the message body.
type Event struct {
	Kind      EventKind
	MachineID uint
	Machine   string
	WONumber  string
}

// Message renders the push payload text for the event.
func (e Event) Message() string {
	switch e.Kind {
	case EventWorkOrderCreated:
		return fmt.Sprintf("New work order %s created for %s", e.WONumber, e.Machine)
	case EventWorkOrderApproved:
		return fmt.Sprintf("Work order %s for %s was approved", e.WONumber, e.Machine)
	case EventWorkOrderCompleted:
		return fmt.Sprintf("Work order %s for %s was completed", e.WONumber, e.Machine)
	case EventReviewNeeded:
		return fmt.Sprintf("AI decision for %s needs manual review", e.Machine)
	default:
		return fmt.Sprintf("Maintenance update for %s", e.Machine)
	}
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

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	logger  *logrus.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, st store.Store, webpushOptions *webpush.Options, logger *logrus.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.WithField("worker", id).Debug("notification worker started")
	for {
		select {
		case ev := <-wp.jobs:
			wp.process(ctx, ev)
		case <-ctx.Done():
			wp.logger.WithField("worker", id).Debug("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues an event without blocking. A full queue drops the event;
// push notifications are best-effort and must never stall a state
// transition.
func (wp *WorkerPool) Dispatch(ev Event) {
	select {
	case wp.jobs <- ev:
	default:
		wp.logger.WithFields(logrus.Fields{
			"kind":       string(ev.Kind),
			"machine_id": ev.MachineID,
		}).Warn("notification queue full, dropping event")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

func (wp *WorkerPool) process(ctx context.Context, ev Event) {
	// Without VAPID keys there is nothing to deliver with; events are
	// accepted and dropped so callers stay oblivious.
	if wp.webpush == nil {
		return
	}

	subs, err := wp.store.SubscriptionsForMachine(ctx, ev.MachineID)
	if err != nil {
		wp.logger.WithError(err).WithField("machine_id", ev.MachineID).Error("failed to fetch subscriptions")
		return
	}
	if len(subs) == 0 {
		return
	}

	wp.logger.WithFields(logrus.Fields{
		"kind":       string(ev.Kind),
		"machine_id": ev.MachineID,
		"recipients": len(subs),
	}).Info("sending push notifications")

	payload := []byte(ev.Message())
	for _, sub := range subs {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to send push notification")
		return
	}
	defer resp.Body.Close()

	// 404 and 410 both mean the subscription is dead at the push service.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		wp.logger.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
