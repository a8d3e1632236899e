package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/crewboard/platform/internal/contracts"
	"github.com/crewboard/platform/internal/platform/metrics"
)

var ErrInvalidEventPayload = errors.New("invalid event payload")

// AdminLister resolves the recipients of dispatcher-facing notifications.
type AdminLister interface {
	ListAdminIDs(ctx context.Context) ([]string, error)
}

// Dispatcher turns task events into fire-and-forget webhook notifications.
// Delivery is best effort: failures are logged and dropped, never retried,
// and never block the event stream.
type Dispatcher struct {
	WebhookURL string
	Client     *http.Client
	Admins     AdminLister
	Logger     *log.Logger
}

func NewDispatcher(webhookURL string, admins AdminLister, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: timeout},
		Admins:     admins,
		Logger:     log.Default(),
	}
}

func (d *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	var event contracts.TaskEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ErrInvalidEventPayload
	}

	notification, ok := d.build(ctx, event)
	if !ok {
		return nil
	}
	d.send(ctx, notification)
	return nil
}

func (d *Dispatcher) build(ctx context.Context, event contracts.TaskEvent) (contracts.Notification, bool) {
	switch event.EventType {
	case "task.created":
		if event.AssignedTo == "" {
			return contracts.Notification{}, false
		}
		return contracts.Notification{
			RecipientIDs: []string{event.AssignedTo},
			Kind:         "task_assigned",
			Title:        "New task assigned",
			Body:         event.Description,
			Metadata: map[string]string{
				"task_id":  event.TaskID,
				"due_date": event.DueDate,
				"due_time": event.DueTime,
			},
			DeepLink: "/tasks/" + event.TaskID,
		}, true
	case "task.completed":
		admins, err := d.Admins.ListAdminIDs(ctx)
		if err != nil {
			d.Logger.Printf("notify: admin lookup failed task=%s: %v", event.TaskID, err)
			return contracts.Notification{}, false
		}
		if len(admins) == 0 {
			return contracts.Notification{}, false
		}
		body := event.Description
		if event.CompletionStatus != "" && event.CompletionStatus != "completed" {
			body = fmt.Sprintf("%s (%s)", event.Description, event.CompletionStatus)
		}
		return contracts.Notification{
			RecipientIDs: admins,
			Kind:         "task_completed",
			Title:        "Task completed by " + event.ActorName,
			Body:         body,
			Metadata: map[string]string{
				"task_id":           event.TaskID,
				"completion_status": event.CompletionStatus,
			},
			DeepLink: "/tasks/" + event.TaskID,
		}, true
	default:
		return contracts.Notification{}, false
	}
}

func (d *Dispatcher) send(ctx context.Context, notification contracts.Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		d.Logger.Printf("notify: marshal failed kind=%s: %v", notification.Kind, err)
		metrics.NotificationsDispatched.WithLabelValues(notification.Kind, "error").Inc()
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		d.Logger.Printf("notify: request build failed kind=%s: %v", notification.Kind, err)
		metrics.NotificationsDispatched.WithLabelValues(notification.Kind, "error").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		d.Logger.Printf("notify: delivery failed kind=%s: %v", notification.Kind, err)
		metrics.NotificationsDispatched.WithLabelValues(notification.Kind, "error").Inc()
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		d.Logger.Printf("notify: delivery rejected kind=%s status=%d", notification.Kind, resp.StatusCode)
		metrics.NotificationsDispatched.WithLabelValues(notification.Kind, "rejected").Inc()
		return
	}
	metrics.NotificationsDispatched.WithLabelValues(notification.Kind, "ok").Inc()
}
