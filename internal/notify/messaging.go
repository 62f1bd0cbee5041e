// internal/notify/messaging.go
//
// Client for the WhatsApp-style messaging provider (Twilio-compatible REST
// API). Game notifications reach this client through the Notifier queue;
// verification codes use the synchronous path.

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// MessagingClient talks to the provider's Messages endpoint.
type MessagingClient struct {
	baseURL string
	sid     string
	token   string
	from    string
	client  *resty.Client
}

// NewMessagingClient builds a client. An empty sid leaves the client in
// disabled mode: sends succeed without network calls, which keeps local
// development working without provider credentials.
func NewMessagingClient(baseURL, sid, token, from string) *MessagingClient {
	return &MessagingClient{
		baseURL: baseURL,
		sid:     sid,
		token:   token,
		from:    from,
		client:  resty.New().SetTimeout(10 * time.Second),
	}
}

// Enabled reports whether real sends are configured.
func (m *MessagingClient) Enabled() bool { return m.sid != "" }

// Send delivers body to phone over the provider's WhatsApp channel.
func (m *MessagingClient) Send(ctx context.Context, phone, body string) error {
	if !m.Enabled() {
		return nil
	}
	resp, err := m.client.R().
		SetContext(ctx).
		SetBasicAuth(m.sid, m.token).
		SetFormData(map[string]string{
			"From": "whatsapp:" + m.from,
			"To":   "whatsapp:" + phone,
			"Body": body,
		}).
		Post(fmt.Sprintf("%s/Accounts/%s/Messages.json", m.baseURL, m.sid))
	if err != nil {
		return fmt.Errorf("messaging send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("messaging send: provider returned %s", resp.Status())
	}
	return nil
}
