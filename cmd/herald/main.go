package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/herald-dns/herald/internal/api"
	"github.com/herald-dns/herald/internal/api/handlers"
	"github.com/herald-dns/herald/internal/config"
	"github.com/herald-dns/herald/internal/database"
	"github.com/herald-dns/herald/internal/dnssd"
	"github.com/herald-dns/herald/internal/host"
	"github.com/herald-dns/herald/internal/logging"
	"github.com/herald-dns/herald/internal/scope"
	"github.com/herald-dns/herald/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values.
type cliFlags struct {
	configPath string
	hostname   string
	iface      string
	apiEnabled bool
	jsonLogs   bool
	debug      bool
}

// parseFlags parses command-line flags and returns the values.
func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config file (or HERALD_CONFIG)")
	flag.StringVar(&f.hostname, "hostname", "", "Override advertised mDNS hostname")
	flag.StringVar(&f.iface, "interface", "", "Bind the multicast scope to this interface")
	flag.BoolVar(&f.apiEnabled, "api", false, "Enable the management API")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable JSON structured logging")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return f
}

// applyCLIOverrides applies command-line overrides to the config.
func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.hostname != "" {
		cfg.Hostname = f.hostname
	}
	if f.iface != "" {
		cfg.MDNS.Interface = f.iface
	}
	if f.apiEnabled {
		cfg.API.Enabled = true
	}
	if f.jsonLogs {
		cfg.Logging.Structured = true
		cfg.Logging.StructuredFormat = "json"
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(config.ResolveConfigPath(flags.configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Persistent store for API-registered services
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	h := host.New(cfg.Hostname, logger)
	logger.Info("herald starting", "hostname", h.Current(), "interface", cfg.MDNS.Interface)

	// Service definitions: files first, then persisted API registrations.
	manager := dnssd.NewManager(logger)
	if err := manager.LoadDirs(cfg.Services.Directories); err != nil {
		return err
	}
	persisted, err := db.ListServices(ctx)
	if err != nil {
		return err
	}
	for _, svc := range persisted {
		if err := manager.Add(svc); err != nil {
			logger.Warn("skipping persisted service", "service", svc.Name, "err", err)
		}
	}

	if !cfg.MDNS.Enabled {
		return errors.New("mdns.enabled is false, nothing to do")
	}

	var ifi *net.Interface
	if cfg.MDNS.Interface != "" {
		ifi, err = net.InterfaceByName(cfg.MDNS.Interface)
		if err != nil {
			return fmt.Errorf("unknown interface %q: %w", cfg.MDNS.Interface, err)
		}
	}

	conn, err := transport.Listen(ifi)
	if err != nil {
		return fmt.Errorf("failed to open mDNS socket: %w", err)
	}

	ifindex := 0
	if ifi != nil {
		ifindex = ifi.Index
	}
	sc := scope.New(conn, h, ifindex, logger)

	// A lost hostname tie-break re-targets every SRV record. The callback
	// fires while the scope lock is held, so the re-registration runs on its
	// own goroutine.
	h.OnChange(func(hostname string) {
		go manager.UpdateHostname(sc, hostname)
	})

	if err := manager.RegisterAll(sc, h.Current()); err != nil {
		logger.Error("failed to register some services", "err", err)
	}

	// Receive loop
	scopeErr := make(chan error, 1)
	go func() { scopeErr <- sc.Run(ctx) }()

	// Announce after the probe cycle has had time to finish.
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
			sc.Announce(ctx)
		}
	}()

	// Management API
	var apiSrv *api.Server
	if cfg.API.Enabled {
		handler := handlers.New(sc, manager, h, db, logger)
		apiSrv = api.New(cfg, handler, logger)
		logger.Info("management API starting", "addr", apiSrv.Addr())
		go func() {
			serveErr := apiSrv.ListenAndServe()
			if serveErr == nil || errors.Is(serveErr, http.ErrServerClosed) {
				return
			}
			logger.Error("API server error", "err", serveErr)
			cancel()
		}()
	}

	// Wait for shutdown or a fatal scope error.
	select {
	case <-ctx.Done():
	case err := <-scopeErr:
		if err != nil {
			logger.Error("scope receive loop failed", "err", err)
		}
	}

	if apiSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = apiSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	// Goodbye packets for everything we still advertise.
	if err := sc.Close(); err != nil {
		logger.Warn("failed to close scope", "err", err)
	}

	logger.Info("herald stopped")
	return nil
}
