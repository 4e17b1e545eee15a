package core

import (
	"time"

	"github.com/automoto/netsnap/shared/snapshot"
)

// Config tunes the authoritative simulation.
type Config struct {
	TickRate         int
	SnapshotInterval time.Duration

	// Player movement on the XZ plane, in units per second.
	MaxSpeed float32
	MaxAccel float32
	// TurnRate scales how quickly yaw closes on the input direction.
	TurnRate float32

	// ArenaHalfSize bounds the playable square [-h, h] on X and Z.
	ArenaHalfSize float64
	// ObstacleRange bounds the integer spawn and target positions of obstacles.
	ObstacleRange int
	// ObstacleMinPeriod and ObstacleMaxPeriod bound one leg of obstacle travel,
	// in whole seconds.
	ObstacleMinPeriod int
	ObstacleMaxPeriod int

	// Seed feeds obstacle placement. Zero seeds from the clock.
	Seed uint64
}

func DefaultConfig() Config {
	return Config{
		TickRate:          60,
		SnapshotInterval:  snapshot.DefaultInterval,
		MaxSpeed:          10,
		MaxAccel:          100,
		TurnRate:          10,
		ArenaHalfSize:     20,
		ObstacleRange:     10,
		ObstacleMinPeriod: 1,
		ObstacleMaxPeriod: 4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = d.TickRate
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = d.SnapshotInterval
	}
	if c.MaxSpeed <= 0 {
		c.MaxSpeed = d.MaxSpeed
	}
	if c.MaxAccel <= 0 {
		c.MaxAccel = d.MaxAccel
	}
	if c.TurnRate <= 0 {
		c.TurnRate = d.TurnRate
	}
	if c.ArenaHalfSize <= 0 {
		c.ArenaHalfSize = d.ArenaHalfSize
	}
	if c.ObstacleRange <= 0 {
		c.ObstacleRange = d.ObstacleRange
	}
	if c.ObstacleMinPeriod <= 0 {
		c.ObstacleMinPeriod = d.ObstacleMinPeriod
	}
	if c.ObstacleMaxPeriod < c.ObstacleMinPeriod {
		c.ObstacleMaxPeriod = max(d.ObstacleMaxPeriod, c.ObstacleMinPeriod)
	}
	return c
}
