// Package log provides per-module, leveled, structured loggers backed by zap.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names used across the service, mirroring how the teacher keys its
// module loggers (e.g. log.ChainDataFetcher).
const (
	Scanner      = "scanner"
	ChainGateway = "chaingateway"
	PoolProc     = "poolprocessor"
	Repository   = "tokenrepo"
	EventBus     = "eventbus"
	KVGateway    = "kvgateway"
	Comments     = "comments"
	Reactions    = "reactions"
	Watchlist    = "watchlist"
	SSE          = "sse"
	Launchpad    = "launchpad"
	HTTPAPI      = "httpapi"
	Server       = "server"
)

var (
	level    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base     *zap.Logger
	initOnce sync.Once
)

func root() *zap.Logger {
	initOnce.Do(func() {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg),
			zapcore.AddSync(os.Stdout),
			level,
		)
		base = zap.New(core)
	})
	return base
}

// SetLevel adjusts the global minimum log level. Intended to be called once
// from the composition root after config is loaded.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// NewModuleLogger returns a logger scoped to a single module, following the
// teacher's `log.NewModuleLogger(log.ChainDataFetcher)` convention.
func NewModuleLogger(module string) *zap.SugaredLogger {
	return root().With(zap.String("module", module)).Sugar()
}
