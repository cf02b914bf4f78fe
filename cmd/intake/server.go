package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/intake/internal/api"
	"github.com/kalambet/intake/internal/config"
	"github.com/kalambet/intake/internal/ingest"
	"github.com/kalambet/intake/internal/intake"
	"github.com/kalambet/intake/internal/metrics"
	"github.com/kalambet/intake/internal/storage"
)

const shutdownTimeout = 5 * time.Second

type serverKind int

const (
	serverAPI serverKind = iota
	serverSite
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API-only server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(serverAPI)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the combined static file and API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(serverSite)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve intake tools over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

// setupLogging installs the default slog logger. Logs always go to stderr so
// stdout stays free for the MCP transport.
func setupLogging(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// recordStore is the authoritative collection, either the JSON file or SQLite.
type recordStore interface {
	intake.RecordLoader
	ingest.RecordAppender
}

// app wires storage, the write queue and the intake service.
type app struct {
	service *intake.Service
	writer  *ingest.Writer
	closers []func() error
}

func openApp(cfg config.Config) (*app, error) {
	files, err := storage.OpenFile(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening data dir: %w", err)
	}

	a := &app{}
	var records recordStore = files
	if strings.EqualFold(cfg.Storage.Backend, config.BackendSQLite) {
		db, err := storage.OpenSQLite(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		records = db
	}

	locale, err := intake.LookupLocale(cfg.Export.Locale)
	if err != nil {
		a.Close()
		return nil, err
	}
	loc, err := loadLocation(cfg.Export.Timezone)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.writer = ingest.NewWriter(records, cfg.Storage.QueueDepth)
	a.service = intake.New(intake.Deps{
		Records:   records,
		Writer:    a.writer,
		Audit:     files,
		Artifacts: files,
		Locale:    locale,
		Location:  loc,
		Logger:    slog.Default(),
	})
	slog.Info("storage ready", "backend", cfg.Storage.Backend, "data_dir", files.Dir())
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			printWarning("closing storage: %v", err)
		}
	}
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid export.timezone %q: %w", name, err)
	}
	return loc, nil
}

func runServer(kind serverKind) error {
	fmt.Fprintf(stderr, "intake version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.RegisterQueueDepth(a.writer.Pending)
	}
	deps := api.Deps{Service: a.service, Metrics: m, Logger: slog.Default()}

	var (
		handler http.Handler
		port    int
	)
	switch kind {
	case serverSite:
		handler, err = api.NewSiteHandler(deps, cfg.Server.StaticDir, cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		port = config.Port(cfg.Server.SitePort)
	default:
		handler = api.NewAPIHandler(deps)
		port = config.Port(cfg.Server.APIPort)
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, ln, a.writer)
}

// serve runs srv on ln and the write queue until ctx is done or the server
// fails. The queue stops only after in-flight requests have drained.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, writer *ingest.Writer) error {
	g, gctx := errgroup.WithContext(ctx)

	writerCtx, stopWriter := context.WithCancel(context.Background())
	g.Go(func() error {
		writer.Run(writerCtx)
		return nil
	})

	g.Go(func() error {
		slog.Info("intake listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopWriter()
		return err
	})

	return g.Wait()
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcpSrv := api.NewMCPServer(api.MCPDeps{Service: a.service, Version: version})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)
	writerCtx, stopWriter := context.WithCancel(context.Background())
	g.Go(func() error {
		a.writer.Run(writerCtx)
		return nil
	})
	g.Go(func() error {
		defer stopWriter()
		slog.Info("MCP server started (stdio transport)")
		err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show intake server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd)
	},
}

func showStatus(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	client.httpClient.Timeout = 2 * time.Second

	resp, err := client.get(cmd.Context(), "/health")
	if err != nil {
		printStatus("Server", "stopped (%s)", client.baseURL)
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running at %s", client.baseURL)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if err == nil && resp.StatusCode == http.StatusOK {
		if statsResp, err := client.get(cmd.Context(), "/api/stats"); err == nil {
			var sum intake.Summary
			if decodeJSON(statsResp, &sum) == nil {
				printStatus("Employees", "%d (%d formal, %d intern)", sum.Total, sum.Formal, sum.Intern)
				printStatus("Departments", "%d", len(sum.Departments))
			}
		}
	}

	printStatus("Backend", "%s", cfg.Storage.Backend)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	printStatus("Export locale", "%s", cfg.Export.Locale)
	return nil
}
