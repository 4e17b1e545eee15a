package config

import (
	"image/color"
	"time"
)

// Config holds general window configuration
type Config struct {
	Width  int
	Height int
	Title  string
}

// NetConfig holds connection settings shared by both binaries
type NetConfig struct {
	ServerAddr string
	Transport  string // "udp", "websocket" or "memory"
	Password   string
	ProtocolID uint32

	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration

	// InputSendRate is how often the client sends its movement vector.
	InputSendRate time.Duration
}

// ServerConfig holds authoritative simulation settings
type ServerConfig struct {
	TickRate         int
	SnapshotInterval time.Duration
	AdminAddr        string

	MaxSpeed float32
	MaxAccel float32
	TurnRate float32

	ArenaHalfSize     float64
	ObstacleRange     int
	ObstacleMinPeriod int
	ObstacleMaxPeriod int
}

// SnapshotConfig holds client playback settings
type SnapshotConfig struct {
	TargetDepth int
	MinScalar   float64
	MaxScalar   float64
	DropStale   bool
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
	File  string
}

// DrawConfig holds demo rendering settings
type DrawConfig struct {
	PixelsPerUnit  float64
	PlayerRadius   float32
	ObstacleSize   float32
	Background     color.RGBA
	ArenaColor     color.RGBA
	LocalColor     color.RGBA
	RemoteColor    color.RGBA
	ObstacleColor  color.RGBA
	FacingColor    color.RGBA
	TextColor      color.RGBA
	StatusDuration time.Duration
}

// Global configuration instances
var C *Config
var Net NetConfig
var Server ServerConfig
var Snapshot SnapshotConfig
var Log LogConfig
var Draw DrawConfig

// Shared RGBA color constants
var (
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow    = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Orange    = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	LightBlue = color.RGBA{R: 100, G: 180, B: 255, A: 255}
	DarkGray  = color.RGBA{R: 30, G: 30, B: 36, A: 255}
	MidGray   = color.RGBA{R: 60, G: 60, B: 70, A: 255}
)

func init() {
	C = &Config{
		Width:  640,
		Height: 640,
		Title:  "netsnap",
	}

	Net = NetConfig{
		ServerAddr:        "127.0.0.1:12345",
		Transport:         "udp",
		ProtocolID:        0x6e736e70,
		HeartbeatInterval: time.Second,
		IdleTimeout:       5 * time.Second,
		InputSendRate:     50 * time.Millisecond,
	}

	Server = ServerConfig{
		TickRate:          60,
		SnapshotInterval:  50 * time.Millisecond, // 20 Hz
		AdminAddr:         "127.0.0.1:9090",
		MaxSpeed:          10,
		MaxAccel:          100,
		TurnRate:          10,
		ArenaHalfSize:     20,
		ObstacleRange:     10,
		ObstacleMinPeriod: 1,
		ObstacleMaxPeriod: 4,
	}

	Snapshot = SnapshotConfig{
		TargetDepth: 2,
		MinScalar:   0.1,
		MaxScalar:   4.0,
	}

	Log = LogConfig{
		Level: "info",
	}

	Draw = DrawConfig{
		PixelsPerUnit:  15,
		PlayerRadius:   7,
		ObstacleSize:   30,
		Background:     DarkGray,
		ArenaColor:     MidGray,
		LocalColor:     LightBlue,
		RemoteColor:    White,
		ObstacleColor:  Orange,
		FacingColor:    Yellow,
		TextColor:      White,
		StatusDuration: 3 * time.Second,
	}
}
