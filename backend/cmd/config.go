package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	ErrConfig = errors.New("invalid configuration")
)

// Config is resolved from defaults, then the dotenv file, then the process
// environment, then command line flags, each overriding the previous one.
type Config struct {
	APIListenAddr    string        `env:"API_LISTEN_ADDR,default=:8080" validate:"required"`
	WSListenAddr     string        `env:"WS_LISTEN_ADDR,default=:5000" validate:"required"`
	LogLevel         string        `env:"LOG_LEVEL,default=info" validate:"oneof=trace debug info warn error"`
	AIEndpoint       string        `env:"AI_ENDPOINT,default=http://localhost:5001/ai/process" validate:"required,url"`
	AIHealthEndpoint string        `env:"AI_HEALTH_ENDPOINT,default=http://localhost:5001/health" validate:"omitempty,url"`
	AITimeout        time.Duration `env:"AI_TIMEOUT,default=30s" validate:"gt=0"`
	MaxMessageSize   int64         `env:"MAX_MESSAGE_SIZE,default=8388608" validate:"gt=0"`
	Sanitize         bool          `env:"SANITIZE_HTML,default=false"`
}

func loadConfig(args []string, environ []string) (*Config, error) {
	flags := pflag.NewFlagSet("relay", pflag.ContinueOnError)

	var (
		apiListenAddr    = flags.StringP("api-listen-addr", "a", ":8080", "api listen address")
		wsListenAddr     = flags.StringP("ws-listen-addr", "w", ":5000", "websocket chat listen address")
		logLevel         = flags.StringP("log-level", "l", "info", "log level")
		aiEndpoint       = flags.String("ai-endpoint", "http://localhost:5001/ai/process", "ai responder url")
		aiHealthEndpoint = flags.String("ai-health-endpoint", "http://localhost:5001/health", "ai responder health url, empty to skip")
		aiTimeout        = flags.Duration("ai-timeout", 30*time.Second, "ai request timeout")
		maxMessageSize   = flags.Int64("max-message-size", 8<<20, "max inbound websocket message size in bytes")
		sanitize         = flags.Bool("sanitize", false, "strip html from names and messages")
		envFile          = flags.String("env-file", ".env", "dotenv file with environment overrides")
	)
	if err := flags.Parse(args); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}
	if es == nil {
		es = env.EnvSet{}
	}
	dotenv, err := godotenv.Read(*envFile)
	if err != nil && (flags.Changed("env-file") || !errors.Is(err, fs.ErrNotExist)) {
		return nil, errors.Join(ErrConfig, err)
	}
	for k, v := range dotenv {
		if _, ok := es[k]; !ok {
			es[k] = v
		}
	}

	var cfg Config
	if err = env.Unmarshal(es, &cfg); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	if flags.Changed("api-listen-addr") {
		cfg.APIListenAddr = *apiListenAddr
	}
	if flags.Changed("ws-listen-addr") {
		cfg.WSListenAddr = *wsListenAddr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if flags.Changed("ai-endpoint") {
		cfg.AIEndpoint = *aiEndpoint
	}
	if flags.Changed("ai-health-endpoint") {
		cfg.AIHealthEndpoint = *aiHealthEndpoint
	}
	if flags.Changed("ai-timeout") {
		cfg.AITimeout = *aiTimeout
	}
	if flags.Changed("max-message-size") {
		cfg.MaxMessageSize = *maxMessageSize
	}
	if flags.Changed("sanitize") {
		cfg.Sanitize = *sanitize
	}

	if err = validator.New().Struct(&cfg); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}
	return &cfg, nil
}
