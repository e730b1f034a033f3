// Command server is the composition root: it loads configuration, wires
// every engine in internal/, and runs the HTTP surface, the Token Scanner
// scheduler, and the External Feed Ingestor until a shutdown signal arrives.
// Grounded on the teacher's cmd/* entrypoints (urfave/cli v1 app with a
// single Action) upgraded to urfave/cli/v2, per SPEC_FULL.md's ambient
// stack section.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/usezoracle/tba-be/internal/blocktime"
	"github.com/usezoracle/tba-be/internal/chain"
	"github.com/usezoracle/tba-be/internal/comments"
	"github.com/usezoracle/tba-be/internal/config"
	"github.com/usezoracle/tba-be/internal/currency"
	"github.com/usezoracle/tba-be/internal/db"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/eventbus"
	"github.com/usezoracle/tba-be/internal/httpapi"
	"github.com/usezoracle/tba-be/internal/kv"
	"github.com/usezoracle/tba-be/internal/launchpad"
	"github.com/usezoracle/tba-be/internal/log"
	"github.com/usezoracle/tba-be/internal/poolprocessor"
	"github.com/usezoracle/tba-be/internal/reactions"
	"github.com/usezoracle/tba-be/internal/retry"
	"github.com/usezoracle/tba-be/internal/scanner"
	"github.com/usezoracle/tba-be/internal/tokenrepo"
	"github.com/usezoracle/tba-be/internal/watchlist"
	"go.uber.org/zap/zapcore"
)

var logger = log.NewModuleLogger(log.Server)

func main() {
	app := &cli.App{
		Name:  "tba-be",
		Usage: "pool discovery and social-interaction backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Required: true, Usage: "path to the TOML config file"},
			&cli.StringFlag{Name: "listen-addr", Usage: "override config.listenAddr"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug|info|warn|error"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatalw("server exited with error", "err", err)
	}
}

func run(c *cli.Context) error {
	applyLogLevel(c.String("log-level"))

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.kv.Close()

	go deps.scanner.Run(ctx)
	go deps.launchpad.Run(ctx)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: deps.server.Handler(),
	}
	go func() {
		logger.Infow("http server listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("http server failed", "err", err)
		}
	}()

	waitForShutdown(ctx, cancel)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("http server shutdown did not complete cleanly", "err", err)
	}
	return nil
}

func applyLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(zapcore.DebugLevel)
	case "warn":
		log.SetLevel(zapcore.WarnLevel)
	case "error":
		log.SetLevel(zapcore.ErrorLevel)
	default:
		log.SetLevel(zapcore.InfoLevel)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	f, err := os.Open(c.String("config"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := config.Load(f)
	if err != nil {
		return nil, err
	}
	if addr := c.String("listen-addr"); addr != "" {
		cfg.ListenAddr = addr
	}
	return cfg, nil
}

// waitForShutdown blocks until SIGINT/SIGTERM arrives or ctx is otherwise
// cancelled, then cancels ctx to stop the scanner and feed ingestor loops.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Infow("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}
	cancel()
}

type dependencies struct {
	kv        *kv.Gateway
	scanner   *scanner.Scanner
	launchpad *launchpad.Ingestor
	server    *httpapi.Server
}

// wire constructs every engine from cfg, following the leaf-first
// dependency order spec.md §9 recommends (Event Bus and KV Gateway as
// shared leaves; engines depend only on those and on each other's events,
// never directly on one another).
func wire(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	gw, err := kv.New(cfg.KV.URL)
	if err != nil {
		return nil, err
	}

	chainGateway, err := chain.DialFromConfig(ctx, cfg.Chain)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	dbRepo := db.NewRepository(conn)

	bus := eventbus.New()
	retrier := retry.New()
	resolver := currency.New(chainGateway, cfg.Chain.ChainID)
	timestamps := blocktime.New(chainGateway, retrier)
	hookMap := cfg.Classifier.HookMap()
	basePairings := cfg.Classifier.BasePairingSet()
	processor := poolprocessor.New(chainGateway, resolver, retrier, hookMap, basePairings)
	tokenRepo := tokenrepo.New(gw, bus, tokenrepo.DefaultTTL)

	sc := scanner.New(cfg.Scanner, chainGateway, timestamps, processor, tokenRepo, hookSetFrom(hookMap), retrier)

	commentsEngine := comments.New(dbRepo, gw, bus)
	reactionsEngine := reactions.New(gw, bus)
	watchlistEngine := watchlist.New(dbRepo, gw, bus)

	feedSource := launchpad.NewHTTPSource(cfg.ExternalFeed.URL, cfg.ExternalFeed.APIKey)
	ingestor := launchpad.New(cfg.ExternalFeed, feedSource, gw, bus)

	server := httpapi.NewServer(watchlistEngine, commentsEngine, reactionsEngine, tokenRepo, sc, ingestor, gw, dbRepo, cfg)

	return &dependencies{kv: gw, scanner: sc, launchpad: ingestor, server: server}, nil
}

func hookSetFrom(hookMap map[string]domain.CoinType) map[string]struct{} {
	out := make(map[string]struct{}, len(hookMap))
	for addr := range hookMap {
		out[addr] = struct{}{}
	}
	return out
}
