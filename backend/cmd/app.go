package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adwski/ai-chat-relay/backend/ai"
	httpServer "github.com/adwski/ai-chat-relay/backend/server/http"
	websocketServer "github.com/adwski/ai-chat-relay/backend/server/websocket"
	"github.com/adwski/ai-chat-relay/backend/service"
	store "github.com/adwski/ai-chat-relay/backend/storage/memory"
	sw "github.com/adwski/ai-chat-relay/backend/switch"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := loadConfig(os.Args[1:], os.Environ())
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	aiClient := ai.NewClient(ai.Config{
		Logger:         &logger,
		Endpoint:       cfg.AIEndpoint,
		HealthEndpoint: cfg.AIHealthEndpoint,
	})
	svc := service.NewService(service.Config{
		Registry:  store.NewRegistry(),
		Switch:    sw.NewSwitch(&logger),
		Responder: aiClient,
		Logger:    &logger,
		AITimeout: cfg.AITimeout,
	})
	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:      &logger,
		RoomService: svc,
		AIHealth:    aiClient,
		ListenAddr:  cfg.APIListenAddr,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:         &logger,
		ChatService:    svc,
		ListenAddr:     cfg.WSListenAddr,
		MaxMessageSize: cfg.MaxMessageSize,
		Sanitize:       cfg.Sanitize,
	})

	logger.Info().
		Str("aiEndpoint", cfg.AIEndpoint).
		Dur("aiTimeout", cfg.AITimeout).
		Bool("sanitize", cfg.Sanitize).
		Msg("chat relay configured, mention @ai to summon the assistant")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(2)
	go httpSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
