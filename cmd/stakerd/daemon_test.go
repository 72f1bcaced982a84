package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"devtoken/config"
	"devtoken/crypto"
	"devtoken/gateway/middleware"
)

func testConfig(t *testing.T) (*config.Config, crypto.Address) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.toml"), config.WithKeystorePassphrase("daemon-test"))
	require.NoError(t, err)
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.IndexerDSN = filepath.Join(cfg.DataDir, "events.db")

	key, err := crypto.LoadFromKeystore(cfg.OperatorKeystorePath, "daemon-test")
	require.NoError(t, err)
	return cfg, key.PubKey().Address()
}

// adminToken signs a gateway token for subject with the node's own secret.
func adminToken(t *testing.T, cfg *config.Config, subject crypto.Address) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject.String(),
		"iss":   cfg.Auth.Issuer,
		"aud":   cfg.Auth.Audience,
		"scope": middleware.ScopeAdmin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.Secret()))
	require.NoError(t, err)
	return token
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func getJSON(t *testing.T, h http.Handler, path string) map[string]interface{} {
	t.Helper()
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	return out
}

func TestDaemonBootstrapsGenesisOnce(t *testing.T) {
	cfg, operator := testConfig(t)
	ctx := context.Background()

	d, err := newDaemon(ctx, cfg, operator, quietLogger())
	require.NoError(t, err)

	info := getJSON(t, d.handler, "/v1/token")
	require.Equal(t, "DVTK", info["symbol"])
	require.Equal(t, operator.String(), info["owner"])
	require.Equal(t, "50000000000000000000000", info["totalSupply"])

	history := getJSON(t, d.handler, "/v1/events/"+operator.String())
	require.NotEmpty(t, history["events"])

	burn := fmt.Sprintf(`{"from":%q,"amount":"5"}`, operator.String())
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/burn", strings.NewReader(burn))
	req.Header.Set(middleware.CallerHeader, operator.String())
	res := httptest.NewRecorder()
	d.handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code, "the default config enforces tokens")

	req = httptest.NewRequest(http.MethodPost, "/v1/admin/burn", strings.NewReader(burn))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg, operator))
	res = httptest.NewRecorder()
	d.handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	d.Close()
	d.Close()

	// A restart reuses the persisted state instead of minting again.
	d, err = newDaemon(ctx, cfg, operator, quietLogger())
	require.NoError(t, err)
	defer d.Close()
	info = getJSON(t, d.handler, "/v1/token")
	require.Equal(t, "49999999999999999999995", info["totalSupply"])
}

func TestDaemonServesUntilCancelled(t *testing.T) {
	cfg, operator := testConfig(t)
	d, err := newDaemon(context.Background(), cfg, operator, quietLogger())
	require.NoError(t, err)
	defer d.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.serveOn(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestDaemonRunsOnBoltState(t *testing.T) {
	cfg, operator := testConfig(t)
	cfg.StateBackend = config.BackendBolt

	d, err := newDaemon(context.Background(), cfg, operator, quietLogger())
	require.NoError(t, err)
	info := getJSON(t, d.handler, "/v1/token")
	require.Equal(t, operator.String(), info["owner"])
	d.Close()
	require.FileExists(t, cfg.BoltPath())

	d, err = newDaemon(context.Background(), cfg, operator, quietLogger())
	require.NoError(t, err)
	defer d.Close()
	info = getJSON(t, d.handler, "/v1/token")
	require.Equal(t, "50000000000000000000000", info["totalSupply"])
}
