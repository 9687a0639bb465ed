package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	return NewClient(Config{
		Logger:         &logger,
		Endpoint:       srv.URL + "/ai/process",
		HealthEndpoint: srv.URL + "/health",
	})
}

func TestClient_Ask(t *testing.T) {
	req := require.New(t)
	var got Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ai/process" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"4","status":"success"}`))
	})

	reply, err := client.Ask(context.Background(), "what is 2+2")

	req.NoError(err)
	req.Equal("4", reply)
	req.Equal("what is 2+2", got.Message)
}

func TestClient_Ask_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "empty object", status: http.StatusOK, body: `{}`, wantErr: ErrMalformedResponse},
		{name: "empty response", status: http.StatusOK, body: `{"response":""}`, wantErr: ErrMalformedResponse},
		{name: "wrong type", status: http.StatusOK, body: `{"response":42}`, wantErr: ErrMalformedResponse},
		{name: "not json", status: http.StatusOK, body: `hello`, wantErr: ErrMalformedResponse},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom","status":"error"}`, wantErr: ErrStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			reply, err := client.Ask(context.Background(), "hi")

			req.ErrorIs(err, tt.wantErr)
			req.Empty(reply)
		})
	}
}

func TestClient_Ask_Timeout(t *testing.T) {
	req := require.New(t)
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Ask(ctx, "hi")

	req.ErrorIs(err, ErrRequest)
	req.ErrorIs(err, context.DeadlineExceeded)
}

func TestClient_Ask_Unreachable(t *testing.T) {
	logger := zerolog.Nop()
	client := NewClient(Config{Logger: &logger, Endpoint: "http://127.0.0.1:1/ai/process"})

	_, err := client.Ask(context.Background(), "hi")

	require.ErrorIs(t, err, ErrRequest)
}

func TestClient_Ping(t *testing.T) {
	req := require.New(t)
	var healthy atomic.Bool
	healthy.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" && healthy.Load() {
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	req.NoError(client.Ping(context.Background()))

	healthy.Store(false)
	req.ErrorIs(client.Ping(context.Background()), ErrStatus)
}
