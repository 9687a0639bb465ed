package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline = 10 * time.Second
	defaultPingTimeout      = 2 * time.Second

	statusOK       = "ok"
	statusDegraded = "degraded"
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type (
	RoomService interface {
		ListNames() []string
	}

	AIHealth interface {
		Ping(ctx context.Context) error
	}

	UsersResponse struct {
		Names []string `json:"names"`
		Count int      `json:"count"`
	}

	HealthResponse struct {
		Status    string    `json:"status"`
		Users     int       `json:"users"`
		AI        string    `json:"ai"`
		AIError   string    `json:"ai_error,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	GenericResponse struct {
		Message string `json:"message,omitempty"`
		Error   string `json:"error,omitempty"`
	}
)

type Server struct {
	logger zerolog.Logger
	svc    RoomService
	ai     AIHealth
	*http.Server
}

type Config struct {
	Logger      *zerolog.Logger
	RoomService RoomService
	AIHealth    AIHealth
	ListenAddr  string
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "api-server").Logger(),
		svc:    cfg.RoomService,
		ai:     cfg.AIHealth,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Get("/health", srv.health)
	r.Get("/api/users", srv.users)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, &GenericResponse{Error: "not found"}, &srv.logger)
	})

	srv.Server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// cors allows any origin and answers preflight requests itself.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (srv *Server) users(w http.ResponseWriter, _ *http.Request) {
	names := srv.svc.ListNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, &UsersResponse{Names: names, Count: len(names)}, &srv.logger)
}

// health reports 200 as long as the relay itself is up; an unreachable
// AI responder only degrades the status.
func (srv *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    statusOK,
		Users:     len(srv.svc.ListNames()),
		AI:        statusOK,
		Timestamp: time.Now().UTC(),
	}
	if srv.ai != nil {
		ctx, cancel := context.WithTimeout(r.Context(), defaultPingTimeout)
		defer cancel()
		if err := srv.ai.Ping(ctx); err != nil {
			srv.logger.Debug().Err(err).Msg("ai responder is unhealthy")
			resp.Status = statusDegraded
			resp.AI = "unavailable"
			resp.AIError = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, &resp, &srv.logger)
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *zerolog.Logger) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	if _, err = w.Write(b); err != nil {
		logger.Error().Err(err).Msg("failed to write response")
	}
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	hErr := make(chan error)
	go func() {
		hErr <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-hErr:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}
