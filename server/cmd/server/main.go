package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/server/core"
	"github.com/automoto/netsnap/shared/logging"
	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "netsnap-server",
	Short: "Dedicated authoritative server for the netsnap arena",
	RunE:  run,
}

func init() {
	f := rootCmd.Flags()
	f.String("addr", config.Net.ServerAddr, "game listen address")
	f.String("transport", config.Net.Transport, "transport backend: udp or websocket")
	f.String("password", config.Net.Password, "connection password (empty accepts anyone)")
	f.Int("tickrate", config.Server.TickRate, "simulation ticks per second")
	f.String("admin", config.Server.AdminAddr, "admin HTTP address (empty disables)")
	f.Uint64("seed", 0, "obstacle placement seed (0 seeds from the clock)")
	f.String("log-level", config.Log.Level, "log level")
	f.String("log-file", config.Log.File, "rolling log file (empty logs to stderr only)")
}

func run(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	addr, _ := flags.GetString("addr")
	kindName, _ := flags.GetString("transport")
	password, _ := flags.GetString("password")
	tickRate, _ := flags.GetInt("tickrate")
	adminAddr, _ := flags.GetString("admin")
	seed, _ := flags.GetUint64("seed")
	level, _ := flags.GetString("log-level")
	file, _ := flags.GetString("log-file")

	log, err := logging.New(logging.Config{Level: level, File: file})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	kind, err := transport.ParseKind(kindName)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tr, err := transport.Listen(kind, addr, transport.Config{
		Password:          password,
		ProtocolID:        config.Net.ProtocolID,
		HeartbeatInterval: config.Net.HeartbeatInterval,
		IdleTimeout:       config.Net.IdleTimeout,
		Logger:            log.Named("transport"),
		Metrics:           m,
	})
	if err != nil {
		return fmt.Errorf("bind %s %s: %w", kind, addr, err)
	}

	srv := core.NewServer(tr, core.Config{
		TickRate:          tickRate,
		SnapshotInterval:  config.Server.SnapshotInterval,
		MaxSpeed:          config.Server.MaxSpeed,
		MaxAccel:          config.Server.MaxAccel,
		TurnRate:          config.Server.TurnRate,
		ArenaHalfSize:     config.Server.ArenaHalfSize,
		ObstacleRange:     config.Server.ObstacleRange,
		ObstacleMinPeriod: config.Server.ObstacleMinPeriod,
		ObstacleMaxPeriod: config.Server.ObstacleMaxPeriod,
		Seed:              seed,
	}, log.Named("server"), m)
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := core.NewGameLoop(srv)

	if adminAddr != "" {
		admin := &http.Server{
			Addr:              adminAddr,
			Handler:           core.NewAdminRouter(loop, reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Infow("admin listening", "addr", adminAddr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("admin server", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = admin.Shutdown(shutdownCtx)
		}()
	}

	log.Infow("server started", "transport", kind, "addr", srv.Addr(), "tick_rate", tickRate)
	loop.Run(ctx)
	log.Info("shutting down")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
