package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/adwski/ai-chat-relay/backend/model"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline = 10 * time.Second

	defaultSessionCloseTimeout = 2 * time.Second

	defaultWebsocketReadBufferSize     = 10000
	defaultWebsocketWriteBufferSize    = 10000
	defaultWebSocketMaxMessageSize     = 8 << 20 // images travel inline as data URLs
	defaultWebSocketHandshakeTimeout   = 3 * time.Second
	defaultWebSocketCloseWriteDeadline = 2 * time.Second
	defaultWebSocketWriteDeadline      = 5 * time.Second

	defaultWireSize = 64

	// defaultPongWait - defaultPingInterval == is how long we give client to respond
	defaultPingInterval = 5 * time.Second
	defaultPongWait     = 7 * time.Second
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type (
	ChatService interface {
		Connect(ctx context.Context, id model.ConnID, wire model.Wire) error
		Join(ctx context.Context, id model.ConnID, name string) error
		Message(ctx context.Context, id model.ConnID, in model.Inbound) error
		Disconnect(ctx context.Context, id model.ConnID)
	}

	Config struct {
		Logger         *zerolog.Logger
		ChatService    ChatService
		ListenAddr     string
		MaxMessageSize int64
		Sanitize       bool
	}

	Server struct {
		svc       ChatService
		ws        *websocket.Upgrader
		sanitizer *sanitizer
		readLimit int64
		*http.Server

		logger zerolog.Logger
	}
)

func NewServer(cfg Config) *Server {
	readLimit := cfg.MaxMessageSize
	if readLimit <= 0 {
		readLimit = defaultWebSocketMaxMessageSize
	}
	srv := &Server{
		logger:    cfg.Logger.With().Str("component", "websocket-server").Logger(),
		svc:       cfg.ChatService,
		readLimit: readLimit,
		ws: &websocket.Upgrader{
			HandshakeTimeout: defaultWebSocketHandshakeTimeout,
			ReadBufferSize:   defaultWebsocketReadBufferSize,
			WriteBufferSize:  defaultWebsocketWriteBufferSize,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
	if cfg.Sanitize {
		srv.sanitizer = newSanitizer()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", srv.chat)

	srv.Server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	return srv
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	errSrv := make(chan error)
	go func() {
		errSrv <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-errSrv:
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

func (srv *Server) chat(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.ws.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already replied with an error status
		srv.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	var (
		id   = model.ConnID(uuid.NewString())
		wire = model.NewWire(defaultWireSize)
	)

	ctx, cancel := context.WithCancel(context.TODO()) // long-living connection context

	if err = srv.svc.Connect(ctx, id, wire); err != nil {
		srv.logger.Error().Err(err).Msg("failed to establish chat session")
		cancel()
		webSocketCloser(conn, &srv.logger)
		return
	}
	srv.logger.Debug().
		Str("connID", string(id)).
		Str("remote", r.RemoteAddr).
		Msg("chat session created")

	go srv.handleWSConn(ctx, cancel, conn, id, wire)
}

func (srv *Server) destroySession(id model.ConnID, logger *zerolog.Logger) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(defaultSessionCloseTimeout))
	defer cancel()
	srv.svc.Disconnect(ctx, id)
	logger.Debug().Msg("chat session ended")
}

// handleWSConn runs the socket reader and writer until either of them stops.
// Inbound events are handled by a separate dispatcher, so a pending AI
// request never stalls the reader and its keep-alive deadlines.
func (srv *Server) handleWSConn(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	id model.ConnID,
	wire model.Wire,
) {
	wg := &sync.WaitGroup{}

	logger := srv.logger.With().
		Str("connID", string(id)).
		Logger()

	go srv.dispatcher(ctx, id, wire.RX, &logger)

	wg.Add(2)
	go func() {
		srv.webSocketReceiver(ctx, wg, conn, wire.RX, &logger)
		cancel()
	}()
	go func() {
		webSocketSender(ctx, wg, conn, wire.TX, wire.Gone, &logger)
		cancel()
		// wake up the reader, it may sit in a blocking read until the pong deadline
		if err := conn.SetReadDeadline(time.Now()); err != nil {
			logger.Debug().Err(err).Msg("failed to expire websocket read deadline")
		}
	}()

	wg.Wait()
	webSocketCloser(conn, &logger)
	srv.destroySession(id, &logger)
}

// dispatcher handles inbound events of one connection strictly in order.
func (srv *Server) dispatcher(
	ctx context.Context,
	id model.ConnID,
	rx <-chan model.Inbound,
	logger *zerolog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-rx:
			srv.dispatch(ctx, id, in, logger)
		}
	}
}

func (srv *Server) dispatch(ctx context.Context, id model.ConnID, in model.Inbound, logger *zerolog.Logger) {
	var err error
	switch in.Type {
	case model.InboundTypeJoin:
		err = srv.svc.Join(ctx, id, in.Name)
	case model.InboundTypeMessage:
		err = srv.svc.Message(ctx, id, in)
	default:
		logger.Warn().Str("type", in.Type).Msg("unknown inbound event type")
		return
	}
	if err != nil {
		logger.Warn().Err(err).Str("type", in.Type).Msg("inbound event rejected")
	}
}

func webSocketSender(
	ctx context.Context,
	wg *sync.WaitGroup,
	conn *websocket.Conn,
	tx <-chan model.Event,
	gone <-chan struct{},
	logger *zerolog.Logger,
) {
	pingTicker := time.NewTicker(defaultPingInterval)
	defer func() {
		pingTicker.Stop()
		wg.Done()
	}()
SendLoop:
	for {
		select {
		case <-ctx.Done():
			break SendLoop
		case <-gone:
			logger.Warn().Msg("connection dropped by relay, outbound queue overflow")
			break SendLoop
		case <-pingTicker.C:
			wsErr := conn.SetWriteDeadline(time.Now().Add(defaultWebSocketWriteDeadline))
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to set websocket write deadline")
				break SendLoop
			}
			wsErr = conn.WriteMessage(websocket.PingMessage, []byte{})
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to send ping")
			}
			logger.Trace().Msg("ping sent")

		case ev, ok := <-tx:
			if !ok {
				break SendLoop
			}

			b, wsErr := json.Marshal(&ev)
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to marshall outgoing event")
				break SendLoop
			}

			wsErr = conn.SetWriteDeadline(time.Now().Add(defaultWebSocketWriteDeadline))
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to set websocket write deadline")
				break SendLoop
			}
			wsW, wsErr := conn.NextWriter(websocket.TextMessage)
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to get websocket text writer")
				break SendLoop
			}
			_, wsErr = wsW.Write(b)
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to write outgoing event")
				break SendLoop
			}
			wsErr = wsW.Close()
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to close websocket writer")
				break SendLoop
			}
		}
	}
}

func (srv *Server) webSocketReceiver(
	ctx context.Context,
	wg *sync.WaitGroup,
	conn *websocket.Conn,
	rx chan<- model.Inbound,
	logger *zerolog.Logger,
) {
	defer wg.Done()

	conn.SetReadLimit(srv.readLimit)
	readDeadLineFunc := func(deadline time.Duration) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	}
	conn.SetPongHandler(func(string) error {
		logger.Trace().Msg("got pong")
		return readDeadLineFunc(defaultPongWait)
	})
	err := readDeadLineFunc(defaultPongWait)
	if err != nil {
		logger.Error().Err(err).Msg("failed to set websocket read deadline")
		return
	}

RecvLoop:
	for {
		select {
		case <-ctx.Done():
			break RecvLoop
		default:
			_, msg, wsErr := conn.ReadMessage()
			if wsErr != nil {
				if ctx.Err() != nil || websocket.IsCloseError(wsErr,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway) {
					logger.Debug().Err(wsErr).Msg("connection closed")
				} else {
					logger.Error().Err(wsErr).Msg("unexpected error during receive")
				}
				break RecvLoop
			}
			// any inbound frame proves the peer is alive
			if wsErr = readDeadLineFunc(defaultPongWait); wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to set websocket read deadline")
				break RecvLoop
			}

			var in model.Inbound
			if wsErr = json.Unmarshal(msg, &in); wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to unmarshall incoming event")
				continue
			}
			if srv.sanitizer != nil {
				in = srv.sanitizer.inbound(in)
			}
			if e := logger.Trace(); e.Enabled() {
				e.Str("event", spew.Sdump(in)).Msg("got inbound event")
			}
			select {
			case rx <- in:
			case <-ctx.Done():
				break RecvLoop
			}
		}
	}
}

func webSocketCloser(conn *websocket.Conn, logger *zerolog.Logger) {
	wsErr := conn.SetWriteDeadline(time.Now().Add(defaultWebSocketCloseWriteDeadline))
	if wsErr != nil {
		logger.Error().Err(wsErr).Msg("failed to set websocket write deadline during closing")
	} else {
		wsErr = conn.WriteMessage(websocket.CloseMessage, []byte{})
		if wsErr != nil {
			logger.Debug().Err(wsErr).Msg("failed to send websocket close message")
		}
	}
	wsErr = conn.Close()
	if wsErr != nil {
		logger.Error().Err(wsErr).Msg("failed to close websocket connection")
	}
}
