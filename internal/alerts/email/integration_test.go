//go:build integration

package email

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/testutil"
	"github.com/stretchr/testify/require"
)

// mailpitMessage is the subset of Mailpit's REST API response this test needs.
type mailpitMessage struct {
	Subject string `json:"Subject"`
}

type mailpitListResponse struct {
	Messages []mailpitMessage `json:"messages"`
}

func TestSender_Send_DeliversToSMTPServer(t *testing.T) {
	ctx := context.Background()

	mailpit, err := testutil.NewMailpitContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mailpit.Terminate(ctx) })

	sender, err := New(Config{
		Enabled:     true,
		Host:        mailpit.SMTPHost,
		Port:        mailpit.SMTPPort,
		FromAddress: "alerts@apimonitor.test",
		ToAddress:   "oncall@apimonitor.test",
	}, nil)
	require.NoError(t, err)

	alert := &domain.Alert{
		ID:       "alert-1",
		Kind:     domain.AlertKindEndpointDown,
		Channel:  domain.AlertChannelEmail,
		Title:    "endpoint down: checkout-api",
		Message:  "3 consecutive failures, last error: dial tcp: connection refused",
	}

	require.NoError(t, sender.Send(ctx, alert))

	messages := waitForMailpitMessages(t, mailpit, 1, 10*time.Second)
	require.Len(t, messages, 1)
	require.Equal(t, alert.Title, messages[0].Subject)
}

func waitForMailpitMessages(t *testing.T, mailpit *testutil.MailpitContainer, count int, timeout time.Duration) []mailpitMessage {
	t.Helper()
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("http://%s:%d/api/v1/messages", mailpit.APIHost, mailpit.APIPort)

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr == nil {
				var parsed mailpitListResponse
				if json.Unmarshal(body, &parsed) == nil && len(parsed.Messages) >= count {
					return parsed.Messages
				}
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d message(s) in mailpit", count)
	return nil
}
