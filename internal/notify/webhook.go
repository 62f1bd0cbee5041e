// internal/notify/webhook.go
//
// Chat-webhook client for end-of-game summaries. The payload is the provider
// convention {"text": "..."}.

package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Summary is the material for one game report.
type Summary struct {
	UserName string
	Outcome  string // "Ganado" | "Perdido" | "Abandonado"
	Word     string
	Attempts []AttemptLine
}

// AttemptLine is one guess in the summary.
type AttemptLine struct {
	Word    string
	Correct bool
}

// WebhookClient posts summaries to a chat webhook.
type WebhookClient struct {
	url    string
	client *resty.Client
}

// NewWebhookClient builds a client. An empty url disables posting.
func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url:    url,
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *WebhookClient) Enabled() bool { return w.url != "" }

// Post sends the formatted summary.
func (w *WebhookClient) Post(ctx context.Context, s Summary) error {
	if !w.Enabled() {
		return nil
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": formatSummary(s)}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook post: endpoint returned %s", resp.Status())
	}
	return nil
}

// formatSummary renders the report text. The layout and Spanish labels are
// the product's established format.
func formatSummary(s Summary) string {
	lines := make([]string, 0, len(s.Attempts))
	for _, a := range s.Attempts {
		verdict := "Incorrecto"
		if a.Correct {
			verdict = "Correcto"
		}
		lines = append(lines, fmt.Sprintf("%s - %s", a.Word, verdict))
	}
	return fmt.Sprintf(
		"*Resumen del Juego*\nUsuario: %s\nEstado: %s\nPalabra oculta: %s\nIntentos:\n%s",
		s.UserName, s.Outcome, s.Word, strings.Join(lines, "\n"),
	)
}
