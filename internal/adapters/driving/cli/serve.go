package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docwatch/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
	"github.com/custodia-labs/docwatch/internal/core/services"
	"github.com/custodia-labs/docwatch/internal/logger"
)

// defaultServeAddr is used when neither --addr nor serve.addr is set.
const defaultServeAddr = "127.0.0.1:8787"

const keyServeAddr = "serve.addr"

var (
	serveAddr  string
	serveNoMCP bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poller with a health endpoint",
	Long: `Run the change-detection poller until interrupted.

The first poll cycle starts immediately. An HTTP server exposes:
  GET /healthz   poller health as JSON (503 when unhealthy)
  /mcp           the MCP tool server over streamable HTTP

Edits to the config file are picked up without a restart.

Only one "docwatch serve" may run against a data directory.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default serve.addr or "+defaultServeAddr+")")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireTracker(); err != nil {
		return err
	}
	if pollerService == nil {
		return errors.New("poller not configured")
	}
	tenant, err := currentTenant()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", healthHandler(trackerService))
	if !serveNoMCP {
		server, err := mcp.NewServer(&mcp.Ports{
			Tracker:    trackerService,
			Tenant:     tenant,
			ResolveRef: mcp.RefResolver(resolveRef),
		})
		if err != nil {
			return err
		}
		mux.Handle("/mcp", server.Handler())
	}

	addr := serveAddr
	if addr == "" && configStore != nil {
		addr = configStore.GetString(keyServeAddr)
	}
	if addr == "" {
		addr = defaultServeAddr
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	cmd.Printf("docwatch serving on http://%s (tenant %s)\n", listener.Addr(), tenant)

	return serve(cmd.Context(), listener, mux)
}

// serve runs the poller, the HTTP server and the config watcher until ctx
// is cancelled or one of them fails.
func serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := pollerService.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if watchConfig != nil {
		g.Go(func() error {
			err := watchConfig(ctx, func() {
				if err := pollerService.UpdateConfig(services.LoadPollerConfig(configStore)); err != nil {
					logger.Warn("config reload rejected: %v", err)
				}
			})
			if err != nil {
				// The poller keeps running on the config it has.
				logger.Warn("config watcher stopped: %v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown: %v", err)
		}
		return pollerService.Stop()
	})

	return g.Wait()
}

// healthReport is the JSON body of GET /healthz and "status --json".
type healthReport struct {
	Status                string    `json:"status"`
	DocsTracked           int       `json:"docs_tracked"`
	CyclesCompleted       int       `json:"cycles_completed"`
	LastPollStartedAt     time.Time `json:"last_poll_started_at"`
	LastPollDurationMs    int64     `json:"last_poll_duration_ms"`
	OperationsLastHour    int       `json:"operations_last_hour"`
	ErrorsLastHour        int       `json:"errors_last_hour"`
	NotificationsLastHour int       `json:"notifications_last_hour"`
	APICallsLastHour      int       `json:"api_calls_last_hour"`
	RateLimitErrors       int       `json:"rate_limit_errors_last_hour"`
	SuccessRate           float64   `json:"success_rate"`
}

func newHealthReport(s *driving.Status) healthReport {
	m := s.Metrics
	return healthReport{
		Status:                string(s.Health),
		DocsTracked:           m.DocsTracked,
		CyclesCompleted:       m.CyclesCompleted,
		LastPollStartedAt:     m.LastPollStartedAt,
		LastPollDurationMs:    m.LastPollDuration.Milliseconds(),
		OperationsLastHour:    m.OperationsLastHour,
		ErrorsLastHour:        m.ErrorsLastHour,
		NotificationsLastHour: m.NotificationsLastHour,
		APICallsLastHour:      m.APICallsLastHour,
		RateLimitErrors:       m.RateLimitErrorsLastHour,
		SuccessRate:           m.SuccessRate,
	}
}

func healthHandler(tracker driving.TrackerService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, err := tracker.Status(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		code := http.StatusOK
		if status.Health == domain.HealthUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(newHealthReport(status))
	})
}
