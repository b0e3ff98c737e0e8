// Command proxyherd starts one daemon instance of the proxy herd
// described in spec.md: a node identified by a symbolic name that
// accepts client location reports, gossips them to its configured
// peers, and answers location-scoped points-of-interest queries.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/herdwatch/proxyherd/internal/config"
	"github.com/herdwatch/proxyherd/internal/gossip"
	"github.com/herdwatch/proxyherd/internal/metrics"
	"github.com/herdwatch/proxyherd/internal/places"
	"github.com/herdwatch/proxyherd/internal/protocol"
	"github.com/herdwatch/proxyherd/internal/server"
	"github.com/herdwatch/proxyherd/internal/store"
)

var configPath string

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "proxyherd <server-name>",
		Short:         "Run one node of the proxy herd",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the herd's YAML configuration")
	return cmd
}

func runDaemon(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	port, ok := cfg.Ports[name]
	if !ok {
		names := cfg.Names()
		sort.Strings(names)
		fmt.Fprintf(os.Stderr, "Usage: proxyherd <server-name>\nValid names: %v\n", names)
		return fmt.Errorf("unknown server name %q", name)
	}

	log := newLogger(name)

	st := store.New()
	m := metrics.New()
	gsp := gossip.New(name, cfg, log, m)
	pl := places.New(cfg.Places, log)
	handler := protocol.New(name, st, gsp, pl, log, m)

	srv := server.New(name, fmt.Sprintf("127.0.0.1:%d", port), handler, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go serveMetrics(ctx, cfg.MetricsAddr, m, log)

	return srv.ListenAndServe(ctx)
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	hs := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = hs.Close()
	}()

	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Warn("metrics server stopped")
	}
}

// newLogger builds the daemon-local append-only log keyed by server
// name that spec.md §7 requires, writing to server_<name>.log exactly
// as the original source's logging.basicConfig(filename=...) does.
func newLogger(serverName string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	f, err := os.OpenFile(fmt.Sprintf("server_%s.log", serverName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(f)
	}

	return log
}
