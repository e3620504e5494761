// Package notify relays batch and rollback summaries to an operator
// webhook. Delivery is fire-and-forget: a failed notification is logged
// and never affects the batch outcome.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Notifier receives event summaries after the fact.
type Notifier interface {
	Notify(event string, payload any)
}

// Webhook POSTs JSON event envelopes to a fixed URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook Notifier for url.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Notify delivers one event. Errors are reported on stderr only.
func (w *Webhook) Notify(event string, payload any) {
	body, err := json.Marshal(envelope{
		Event:     event,
		Timestamp: time.Now(),
		Payload:   payload,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to encode %s notification: %v\n", event, err)
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to deliver %s notification: %v\n", event, err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "warning: %s notification rejected: %s\n", event, resp.Status)
	}
}

// Nop is a Notifier that drops everything; used when no webhook is
// configured.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(string, any) {}
