package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresURLWhenEnabled(t *testing.T) {
	_, err := New(Config{Enabled: true}, nil)
	require.Error(t, err)
}

func TestSender_Channel(t *testing.T) {
	s, err := New(Config{}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.AlertChannelWebhook, s.Channel())
}

func TestSender_Send_PostsEventPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload eventPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "ep-1", payload.EndpointID)
		require.Equal(t, string(domain.AlertKindTimeout), payload.Kind)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	s, err := New(Config{Enabled: true, URL: server.URL}, nil)
	require.NoError(t, err)

	alert := &domain.Alert{
		EndpointID: "ep-1",
		Kind:       domain.AlertKindTimeout,
		Severity:   domain.AlertSeverityError,
		Title:      "Timeout",
		Message:    "timed out",
	}
	require.NoError(t, s.Send(context.Background(), alert))
}

func TestSender_Send_ServerErrorReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s, err := New(Config{Enabled: true, URL: server.URL}, nil)
	require.NoError(t, err)

	err = s.Send(context.Background(), &domain.Alert{})
	require.Error(t, err)
}
