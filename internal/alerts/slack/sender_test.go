package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresWebhookURLWhenEnabled(t *testing.T) {
	_, err := New(Config{Enabled: true}, nil)
	require.Error(t, err)
}

func TestNew_DisabledAllowsEmptyURL(t *testing.T) {
	s, err := New(Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestSender_Channel(t *testing.T) {
	s, err := New(Config{}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.AlertChannelSlack, s.Channel())
}

func TestSender_Send_PostsJSONPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Contains(t, payload.Text, "API Down")
		require.Contains(t, payload.Text, "orders-api is failing")

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, err := New(Config{Enabled: true, WebhookURL: server.URL}, nil)
	require.NoError(t, err)

	alert := &domain.Alert{Title: "API Down", Message: "orders-api is failing"}
	require.NoError(t, s.Send(context.Background(), alert))
}

func TestSender_Send_DisabledIsNoOp(t *testing.T) {
	s, err := New(Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), &domain.Alert{Title: "x", Message: "y"}))
}

func TestSender_Send_NonOKStatusReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	s, err := New(Config{Enabled: true, WebhookURL: server.URL}, nil)
	require.NoError(t, err)

	err = s.Send(context.Background(), &domain.Alert{Title: "x", Message: "y"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}
