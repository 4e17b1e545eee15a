package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/prometheus/client_golang/prometheus"
)

func startLoop(t *testing.T) (*GameLoop, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	tr, err := transport.NewMemoryHub().Listen("admin", transport.Config{})
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(tr, Config{Seed: 1}, nil, metrics.New(reg))
	loop := NewGameLoop(s)

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.stopped
		_ = s.Close()
	})
	return loop, reg
}

func TestAdminEndpoints(t *testing.T) {
	loop, reg := startLoop(t)
	srv := httptest.NewServer(NewAdminRouter(loop, reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/obstacles", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var created obstacleResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || resp.StatusCode != http.StatusCreated || created.ID != 255 {
		t.Fatalf("POST /obstacles = %d %+v %v", resp.StatusCode, created, err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/players")
	if err != nil {
		t.Fatal(err)
	}
	var listed playersResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil || listed.Obstacles != 1 || len(listed.Players) != 0 {
		t.Fatalf("GET /players = %+v %v", listed, err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "netsnap_server_obstacles_spawned_total 1") {
		t.Fatalf("metrics missing obstacle counter:\n%s", body)
	}
}

func TestDoAfterStop(t *testing.T) {
	tr, _ := transport.NewMemoryHub().Listen("stop", transport.Config{})
	loop := NewGameLoop(NewServer(tr, Config{}, nil, nil))
	go loop.Run(context.Background())
	loop.Stop()

	if err := loop.Do(context.Background(), func(*Server) {}); err != ErrLoopStopped {
		t.Fatalf("Do after stop = %v", err)
	}
}
