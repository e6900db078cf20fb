package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"depined-bot/internal/features/heartbeat"
	logging "depined-bot/internal/infra/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func execute(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func depinedStub(t *testing.T, badToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == badToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"invalid token"}`))
			return
		}
		switch r.URL.Path {
		case "/user/details":
			w.Write([]byte(`{"data":{"username":"user-` + token + `"}}`))
		case "/stats/epoch-earnings":
			w.Write([]byte(`{"data":{"earnings":1500000,"epoch":3}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_NoTokensFails(t *testing.T) {
	err := execute("run", "--tokens-file", tokenFile(t, "\n  \n"), "--log-file=false")
	assert.ErrorIs(t, err, heartbeat.ErrNoAccounts)
}

func TestRun_MissingTokenFileFails(t *testing.T) {
	err := execute("--tokens-file", filepath.Join(t.TempDir(), "missing.txt"), "--log-file=false")
	assert.ErrorIs(t, err, heartbeat.ErrNoAccounts)
}

func TestRun_InvalidIntervals(t *testing.T) {
	err := execute("run", "--tokens-file", tokenFile(t, "tok"), "--log-file=false",
		"--min-interval", "5s", "--max-interval", "1s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")

	// restore for later tests sharing the command tree
	require.NoError(t, rootCmd.PersistentFlags().Set("min-interval", "300ms"))
	require.NoError(t, rootCmd.PersistentFlags().Set("max-interval", "2700ms"))
}

func TestAccounts_ChecksEveryToken(t *testing.T) {
	srv := depinedStub(t, "tokB")
	err := execute("accounts", "--tokens-file", tokenFile(t, "tokA\ntokB\n"), "--base-url", srv.URL, "--log-file=false")
	assert.NoError(t, err, "one bad token out of two is not fatal")
}

func TestAccounts_AllFailing(t *testing.T) {
	srv := depinedStub(t, "tokA")
	err := execute("accounts", "--tokens-file", tokenFile(t, "tokA"), "--base-url", srv.URL, "--log-file=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 accounts failed")
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	writeBanner(&buf)
	assert.Contains(t, buf.String(), "widget heartbeat bot")
}

func TestLogFarmExit(t *testing.T) {
	var buf bytes.Buffer
	logging.SetConsoleOutput(&buf)
	t.Cleanup(func() { logging.SetConsoleOutput(os.Stdout) })

	logFarmExit(nil)
	logFarmExit(context.Canceled)
	logFarmExit(fmt.Errorf("wrapped: %w", context.Canceled))
	assert.Empty(t, buf.String(), "shutdown is not an error")

	logFarmExit(errors.New("boom"))
	assert.Contains(t, buf.String(), "Farm stopped: boom")
}
