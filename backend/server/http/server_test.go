package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubRoom []string

func (s stubRoom) ListNames() []string { return s }

type stubAI struct{ err error }

func (s stubAI) Ping(context.Context) error { return s.err }

func newTestServer(room RoomService, aiHealth AIHealth) *Server {
	logger := zerolog.Nop()
	return NewServer(Config{
		Logger:      &logger,
		RoomService: room,
		AIHealth:    aiHealth,
	})
}

func do(srv *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServer_Users(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(stubRoom{"alice", "alice", "bob"}, nil)

	rec := do(srv, http.MethodGet, "/api/users")

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))
	var resp UsersResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Equal(3, resp.Count)
	req.ElementsMatch([]string{"alice", "alice", "bob"}, resp.Names)
}

func TestServer_Users_Empty(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(stubRoom(nil), nil)

	rec := do(srv, http.MethodGet, "/api/users")

	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"names":[],"count":0}`, rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name       string
		ai         AIHealth
		wantStatus string
		wantAI     string
	}{
		{name: "no responder configured", ai: nil, wantStatus: statusOK, wantAI: statusOK},
		{name: "responder up", ai: stubAI{}, wantStatus: statusOK, wantAI: statusOK},
		{name: "responder down", ai: stubAI{err: errors.New("connection refused")}, wantStatus: statusDegraded, wantAI: "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			srv := newTestServer(stubRoom{"alice"}, tt.ai)

			rec := do(srv, http.MethodGet, "/health")

			req.Equal(http.StatusOK, rec.Code)
			var resp HealthResponse
			req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
			req.Equal(tt.wantStatus, resp.Status)
			req.Equal(tt.wantAI, resp.AI)
			req.Equal(1, resp.Users)
		})
	}
}

func TestServer_Preflight_And_NotFound(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(stubRoom(nil), nil)

	rec := do(srv, http.MethodOptions, "/api/users")
	req.Equal(http.StatusNoContent, rec.Code)
	req.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(srv, http.MethodGet, "/nope")
	req.Equal(http.StatusNotFound, rec.Code)
}
