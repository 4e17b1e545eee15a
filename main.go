package main

import (
	"errors"
	"image"
	"io"
	"os"

	"github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/fonts"
	"github.com/automoto/netsnap/game"
	"github.com/automoto/netsnap/scenes"
	"github.com/automoto/netsnap/server/core"
	"github.com/automoto/netsnap/shared/logging"
	"github.com/automoto/netsnap/shared/snapshot"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/automoto/netsnap/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"
)

type Scene interface {
	Update()
	Draw(screen *ebiten.Image)
}

type Game struct {
	bounds image.Rectangle
	scene  Scene
	quit   bool
}

// ChangeScene switches to a new scene
func (g *Game) ChangeScene(scene interface{}) {
	g.scene = scene.(Scene)
}

// Quit ends the run loop after the current update.
func (g *Game) Quit() {
	g.quit = true
}

func NewGame(opts game.Options) *Game {
	g := &Game{
		bounds: image.Rectangle{},
	}
	g.scene = scenes.NewMenuScene(g, opts, "")
	return g
}

func (g *Game) Update() error {
	g.scene.Update()
	if g.quit {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.scene.Draw(screen)
}

func (g *Game) Layout(width, height int) (int, int) {
	g.bounds = image.Rect(0, 0, config.C.Width, config.C.Height)
	return config.C.Width, config.C.Height
}

// Close releases the running scene's session, if any.
func (g *Game) Close() error {
	if c, ok := g.scene.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "netsnap",
	Short: "Snapshot interpolation demo: host or join an arena",
	RunE:  run,
}

func init() {
	f := rootCmd.Flags()
	f.String("addr", config.Net.ServerAddr, "server address to host on or join")
	f.String("transport", config.Net.Transport, "transport backend: udp, websocket or memory")
	f.String("password", config.Net.Password, "connection password")
	f.Bool("drop-stale", config.Snapshot.DropStale, "discard snapshots that are not newer than the last one")
	f.String("log-level", config.Log.Level, "log level")
	f.String("log-file", config.Log.File, "rolling log file (empty logs to stderr only)")
}

func run(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	addr, _ := flags.GetString("addr")
	kindName, _ := flags.GetString("transport")
	password, _ := flags.GetString("password")
	dropStale, _ := flags.GetBool("drop-stale")
	level, _ := flags.GetString("log-level")
	file, _ := flags.GetString("log-file")

	log, err := logging.New(logging.Config{Level: level, File: file})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	systems.SetLogger(log.Named("demo"))

	if err := fonts.LoadDefaults(); err != nil {
		return err
	}

	// The saved endpoint wins over defaults but not over explicit flags.
	if err := systems.InitPersistence("netsnap"); err == nil {
		if saved := systems.LoadEndpoint(); saved != nil {
			if !flags.Changed("addr") && saved.Addr != "" {
				addr = saved.Addr
			}
			if !flags.Changed("transport") && saved.Transport != "" {
				kindName = saved.Transport
			}
		}
	}

	kind, err := transport.ParseKind(kindName)
	if err != nil {
		return err
	}

	opts := game.Options{
		Kind: kind,
		Addr: addr,
		Transport: transport.Config{
			Password:          password,
			ProtocolID:        config.Net.ProtocolID,
			HeartbeatInterval: config.Net.HeartbeatInterval,
			IdleTimeout:       config.Net.IdleTimeout,
		},
		Snapshot: snapshot.Config{
			BaseInterval: config.Server.SnapshotInterval,
			TargetDepth:  config.Snapshot.TargetDepth,
			MinScalar:    config.Snapshot.MinScalar,
			MaxScalar:    config.Snapshot.MaxScalar,
			DropStale:    dropStale,
		},
		Server: core.Config{
			TickRate:          config.Server.TickRate,
			SnapshotInterval:  config.Server.SnapshotInterval,
			MaxSpeed:          config.Server.MaxSpeed,
			MaxAccel:          config.Server.MaxAccel,
			TurnRate:          config.Server.TurnRate,
			ArenaHalfSize:     config.Server.ArenaHalfSize,
			ObstacleRange:     config.Server.ObstacleRange,
			ObstacleMinPeriod: config.Server.ObstacleMinPeriod,
			ObstacleMaxPeriod: config.Server.ObstacleMaxPeriod,
		},
		InputSendRate: config.Net.InputSendRate,
		Logger:        log,
	}

	ebiten.SetWindowSize(config.C.Width, config.C.Height)
	ebiten.SetWindowTitle(config.C.Title)

	g := NewGame(opts)
	err = ebiten.RunGame(g)
	if cerr := g.Close(); cerr != nil {
		log.Warnw("close session", "error", cerr)
	}
	if err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
