package core

import (
	"context"
	"errors"
	"time"
)

// ErrLoopStopped is returned for commands submitted after the loop exits.
var ErrLoopStopped = errors.New("game loop stopped")

type command struct {
	fn   func(*Server)
	done chan struct{}
}

// GameLoop ticks a Server at a fixed rate and serializes access to it from
// other goroutines through a command queue.
type GameLoop struct {
	server   *Server
	tickRate int
	commands chan command
	stopChan chan struct{}
	stopped  chan struct{}
}

func NewGameLoop(server *Server) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: server.TickRate(),
		commands: make(chan command, 64),
		stopChan: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run blocks until Stop is called or ctx ends.
func (g *GameLoop) Run(ctx context.Context) {
	defer close(g.stopped)

	interval := time.Second / time.Duration(g.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.server.log.Infow("game loop started", "tick_rate", g.tickRate)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			g.server.log.Info("game loop stopped")
			return
		case <-g.stopChan:
			g.server.log.Info("game loop stopped")
			return
		case cmd := <-g.commands:
			cmd.fn(g.server)
			close(cmd.done)
		case now := <-ticker.C:
			g.server.Tick(now.Sub(last))
			last = now
		}
	}
}

// Stop ends a running loop and waits for it to exit.
func (g *GameLoop) Stop() {
	close(g.stopChan)
	<-g.stopped
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (g *GameLoop) Do(ctx context.Context, fn func(*Server)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case g.commands <- cmd:
	case <-g.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-g.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
