package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbeHealthTrueOnOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","version":"test"}`))
	}))
	defer srv.Close()

	port := testServerPort(t, srv.URL)
	require.True(t, probeHealth(context.Background(), port))
}

func TestProbeHealthFalseWhenUnreachable(t *testing.T) {
	require.False(t, probeHealth(context.Background(), 1))
}

func TestProbeHealthFalseOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer srv.Close()

	port := testServerPort(t, srv.URL)
	require.False(t, probeHealth(context.Background(), port))
}

func testServerPort(t *testing.T, rawURL string) int {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}
