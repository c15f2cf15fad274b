package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/xaxixak/oracle-v2/internal/config"
)

var (
	ensureServerStatusOnly bool
	ensureServerVerbose    bool
)

var ensureServerCmd = &cobra.Command{
	Use:   "ensure-server",
	Short: "Start the HTTP server if it isn't already running, then exit 0 iff it is healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnsureServer(cmd.Context())
	},
}

func init() {
	ensureServerCmd.Flags().BoolVar(&ensureServerStatusOnly, "status", false, "only report whether the server is healthy, never start it")
	ensureServerCmd.Flags().BoolVar(&ensureServerVerbose, "verbose", false, "print the health check result")
}

func runEnsureServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if healthy := probeHealth(ctx, cfg.Port); healthy {
		logEnsureServer("already running and healthy")
		return nil
	}

	if ensureServerStatusOnly {
		logEnsureServer("not running")
		return fmt.Errorf("ensure-server: server is not healthy")
	}

	logEnsureServer("not running, starting in background")
	if err := spawnServer(); err != nil {
		return fmt.Errorf("ensure-server: spawn server: %w", err)
	}

	const (
		pollInterval = 200 * time.Millisecond
		pollTimeout  = 10 * time.Second
	)
	deadline := time.Now().Add(pollTimeout)
	for time.Now().Before(deadline) {
		if probeHealth(ctx, cfg.Port) {
			logEnsureServer("started and healthy")
			return nil
		}
		time.Sleep(pollInterval)
	}

	return fmt.Errorf("ensure-server: server did not become healthy within %s", pollTimeout)
}

func probeHealth(ctx context.Context, port int) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/health", port)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		Status string `json:"status"`
	}
	return json.NewDecoder(resp.Body).Decode(&body) == nil && body.Status == "ok"
}

// spawnServer launches "oracle server" as a detached background process
// inheriting the current environment, so it keeps running after this
// process exits.
func spawnServer() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, "server")
	return cmd.Start()
}

func logEnsureServer(msg string) {
	if ensureServerVerbose {
		fmt.Fprintln(os.Stderr, "ensure-server:", msg)
	}
}
