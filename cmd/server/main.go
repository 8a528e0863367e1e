package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skylane-game/skylane/pkg/api"
	"github.com/skylane-game/skylane/pkg/log"
	"github.com/skylane-game/skylane/pkg/repositories"
	"github.com/skylane-game/skylane/pkg/server"
	"github.com/skylane-game/skylane/pkg/transport"
	"github.com/skylane-game/skylane/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("skylane-server", flag.ContinueOnError)
	configPath := flags.String("config", "", "Load configuration from file")
	port := flags.Int("port", 0, "Server port (overrides config)")
	name := flags.String("name", "", "Server name (overrides config)")
	maxPlayers := flags.Int("max-players", 0, "Maximum players (overrides config)")
	noConsole := flags.Bool("no-console", false, "Disable console interface")
	useWebSocket := flags.Bool("websocket", false, "Serve over WebSocket instead of UDP")
	dbPath := flags.String("db", "skylane.db", "SQLite player database path (empty to disable)")
	dbURL := flags.String("db-url", "", "Postgres connection string (overrides --db)")
	logLevel := flags.String("log-level", "info", "Log level (error, warn, info, debug, trace)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Skylane Dedicated Server %s\n\nUsage:\n  %s [options]\n\nOptions:\n", version.Get(), os.Args[0])
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	parsedLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		return 1
	}
	log.SetDefaultLogger(log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLevel))

	config := server.DefaultConfig()
	if *configPath != "" {
		log.Info("Loading configuration from %s", *configPath)
		if err := config.Load(*configPath); err != nil {
			log.Warn("Could not load config file, using defaults: %v", err)
		}
	}
	if *port != 0 {
		config.Port = *port
	}
	if *name != "" {
		config.ServerName = *name
	}
	if *maxPlayers != 0 {
		config.MaxPlayers = *maxPlayers
	}
	if *noConsole {
		config.EnableConsole = false
	}
	if config.VerboseLogging && parsedLevel < log.LogLevelDebug {
		log.SetLevel(log.LogLevelDebug)
	}

	log.Info("Skylane Dedicated Server %s", version.Get())

	ctx := context.Background()
	var repo repositories.Repository
	switch {
	case *dbURL != "":
		pg, err := repositories.NewPostgresRepository(ctx, *dbURL)
		if err != nil {
			log.Error("Failed to open Postgres repository: %v", err)
			return 1
		}
		repo = pg
	case *dbPath != "":
		sq, err := repositories.NewSQLiteRepository(ctx, *dbPath)
		if err != nil {
			log.Error("Failed to open SQLite repository: %v", err)
			return 1
		}
		repo = sq
	}
	if repo != nil {
		defer repo.Close(ctx)
	}

	var tr transport.Transport
	if *useWebSocket {
		tr = transport.NewWebSocketTransport()
	} else {
		udp := transport.NewUDPTransport()
		udp.MaxConnsPerIP = config.MaxConnsPerIP
		tr = udp
	}

	srv, err := server.NewServer(server.NewServerOptions{
		Config:     config,
		Transport:  tr,
		Repository: repo,
	})
	if err != nil {
		log.Error("Failed to create server: %v", err)
		return 1
	}

	if err := srv.Start(); err != nil {
		log.Error("Failed to start server: %v", err)
		return 1
	}

	// SIGINT and SIGTERM request a graceful stop: the loop finishes its
	// in-flight tick, players are saved, the transport closes.
	signalCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	group, groupCtx := errgroup.WithContext(signalCtx)

	group.Go(func() error {
		defer stopSignals()
		return srv.Run()
	})

	group.Go(func() error {
		<-groupCtx.Done()
		srv.Stop()
		return nil
	})

	if config.EnableConsole {
		log.Info("Server console active. Type 'help' for commands.")
		go srv.RunConsole(os.Stdin, os.Stdout)
	}

	var adminAPI *api.Server
	if config.EnableAdminAPI {
		adminAPI = api.NewServer(api.NewServerOptions{
			Port:       config.AdminAPIPort,
			GameServer: srv,
		})
		go adminAPI.Start()
	}

	err = group.Wait()

	if adminAPI != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		adminAPI.Stop(shutdownCtx)
		cancel()
	}

	if err != nil {
		log.Error("Server exited with error: %v", err)
		return 1
	}
	log.Info("Server shutdown complete")
	return 0
}
