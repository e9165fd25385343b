package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partyroom/internal/api"
	"github.com/mcoot/partyroom/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath      string
	serverURL       string
	credentialsFile string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "partyctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/partyctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath:      binaryPath,
		serverURL:       serverURL,
		credentialsFile: filepath.Join(t.TempDir(), "credentials.json"),
	}
}

// withCredentials returns a runner sharing the binary but acting as another player
func (r *cliRunner) withCredentials(t *testing.T) *cliRunner {
	t.Helper()
	return &cliRunner{
		binaryPath:      r.binaryPath,
		serverURL:       r.serverURL,
		credentialsFile: filepath.Join(t.TempDir(), "credentials.json"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--credentials", r.credentialsFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app, err := factory.New(factory.Config{Logger: logger})
	require.NoError(t, err)

	server := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(api.RouterConfig{
			Logger:     logger,
			Registry:   app.Registry,
			HubManager: app.HubManager,
		}),
	}
	server.RegisterOnShutdown(app.HubManager.Close)

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type registrationResponse struct {
	Code          string `json:"code"`
	PlayerID      string `json:"player_id"`
	RecoveryToken string `json:"recovery_token"`
}

type gameResponse struct {
	Code         string `json:"code"`
	State        string `json:"state"`
	Owner        string `json:"owner"`
	Participants []struct {
		DisplayName string `json:"display_name"`
		Connected   bool   `json:"connected"`
	} `json:"participants"`
}

type playersResponse struct {
	Players []string `json:"players"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type leaveResponse struct {
	Outcome string `json:"outcome"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_FullLifecycle(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := newCLIRunner(t, ts.addr)
	bob := alice.withCredentials(t)

	// Alice creates a game
	output, err := alice.run("create", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	var created registrationResponse
	require.NoError(t, json.Unmarshal([]byte(output), &created))
	code := created.Code
	t.Logf("Created game: %s", code)

	// Bob joins
	output, err = bob.run("join", code, "--name", "Bob")
	require.NoError(t, err, "output: %s", output)

	// Rejoining under the saved name returns the same identity
	output, err = bob.run("join", code, "--name", "Bob")
	require.NoError(t, err, "output: %s", output)

	output, err = alice.run("players")
	require.NoError(t, err, "output: %s", output)
	var players playersResponse
	require.NoError(t, json.Unmarshal([]byte(output), &players))
	assert.Equal(t, []string{"Alice", "Bob"}, players.Players)

	// Only the owner can start
	output, err = bob.run("start")
	assert.Error(t, err, "output: %s", output)

	output, err = alice.run("owner", "Bob")
	require.NoError(t, err, "output: %s", output)

	output, err = bob.run("start")
	require.NoError(t, err, "output: %s", output)

	output, err = alice.run("show")
	require.NoError(t, err, "output: %s", output)
	var game gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &game))
	assert.Equal(t, "started", game.State)
	assert.Equal(t, "Bob", game.Owner)

	// Both leave; the second leave deletes the game
	output, err = alice.run("leave")
	require.NoError(t, err, "output: %s", output)
	var left leaveResponse
	require.NoError(t, json.Unmarshal([]byte(output), &left))
	assert.Equal(t, "session-alive", left.Outcome)

	output, err = bob.run("leave")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &left))
	assert.Equal(t, "session-deleted", left.Outcome)

	output, err = alice.run("exists", code)
	require.NoError(t, err, "output: %s", output)
	var exists existsResponse
	require.NoError(t, json.Unmarshal([]byte(output), &exists))
	assert.False(t, exists.Exists)
}

func TestCLI_NameTaken(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := newCLIRunner(t, ts.addr)
	mallory := alice.withCredentials(t)

	output, err := alice.run("create", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	var created registrationResponse
	require.NoError(t, json.Unmarshal([]byte(output), &created))

	output, err = mallory.run("join", created.Code, "--name", "Alice")
	assert.Error(t, err)
	assert.Contains(t, output, "NAME_TAKEN")
}
