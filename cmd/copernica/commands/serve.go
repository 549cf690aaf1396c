package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/paradigmlink/copernica/internal/config"
	"github.com/paradigmlink/copernica/internal/contentstore"
	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/metrics"
	"github.com/paradigmlink/copernica/internal/node"
	"github.com/paradigmlink/copernica/internal/packet"
	"github.com/paradigmlink/copernica/internal/router"
	"github.com/paradigmlink/copernica/internal/wire"
	appversion "github.com/paradigmlink/copernica/internal/version"
)

// shutdownTimeout bounds how long the metrics HTTP server gets to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// outboundBuffer is the channel capacity given to each configured link's
// outbound side. No transport adapter reads it yet, so serve just drains
// and logs it; a future UDP/radio adapter replaces that drain loop.
const outboundBuffer = 64

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a copernica node until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(configPath)
		},
	}
}

func runServe(path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return err
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("copernica starting",
		slog.String("version", appversion.Version),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.Int("links", len(cfg.Links)),
	)

	id, err := loadIdentity(cfg.Router.IdentitySeedHex)
	if err != nil {
		return fmt.Errorf("load node identity: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	store, err := contentstore.New(cfg.Router.ContentStoreCapacity)
	if err != nil {
		return fmt.Errorf("create content store: %w", err)
	}

	r := router.New(store, wire.LinkID(cfg.Router.DeepSixLink))
	n := node.New(id, r, collector, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	for i, lc := range cfg.Links {
		linkID := wire.LinkID(i + 1)
		out := make(chan packet.InterLinkPacket, outboundBuffer)
		n.AddLink(linkID, lc.Name, out)

		logger.Info("link configured",
			slog.String("name", lc.Name),
			slog.String("transport", lc.Transport),
			slog.Uint64("link_id", uint64(linkID)),
		)

		g.Go(func() error {
			return drainLink(gCtx, lc.Name, out, logger)
		})
	}

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(gCtx, metricsSrv)
	})

	g.Go(func() error {
		return n.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), shutdownTimeout)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run node: %w", err)
	}

	logger.Info("copernica stopped")
	return nil
}

// drainLink discards frames a node writes to a link with no transport
// adapter attached yet, logging each at debug level. A real adapter (UDP,
// radio, whatever) replaces this loop with actual I/O.
func drainLink(ctx context.Context, name string, out <-chan packet.InterLinkPacket, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ilp := <-out:
			logger.Debug("link outbound frame (no transport attached, dropping)",
				slog.String("link", name),
				slog.Any("kind", ilp.LinkPacket.NarrowWaist.Kind),
			)
		}
	}
}

// loadIdentity derives this node's identity from a hex-encoded 32-byte
// seed. An empty seed is rejected rather than silently defaulting to the
// zero seed, since two nodes sharing a seed would share a signing key.
func loadIdentity(seedHex string) (*identity.PrivateIdentity, error) {
	if seedHex == "" {
		return nil, fmt.Errorf("router.identity_seed_hex must be set to a 32-byte hex seed")
	}
	raw, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode identity_seed_hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("identity_seed_hex must decode to 32 bytes, got %d", len(raw))
	}
	var seed [32]byte
	copy(seed[:], raw)
	return identity.NewPrivateIdentity(seed)
}

// loadConfig loads configuration from a file path or returns defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

// newLoggerWithLevel creates a structured logger using a shared LevelVar so
// the log level could be adjusted dynamically by a future reload path.
func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// newMetricsServer creates an HTTP server for the Prometheus metrics endpoint.
func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// listenAndServe serves HTTP requests on srv until ctx is cancelled.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", srv.Addr, err)
	}
	return nil
}
