// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
)

type pingRequest struct {
	Count int
}

type pingResponse struct {
	Count int
}

func newClientFlags(t *testing.T, addr string) *ClientFlags {
	t.Helper()

	u, err := url.Parse(addr)
	if err != nil {
		t.Fatal(err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}

	cf := new(ClientFlags)
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	cf.SetFlags(fset)
	if err := fset.Parse([]string{"-connect-host", host, "-connect-port", port}); err != nil {
		t.Fatal(err)
	}
	return cf
}

func TestPost(t *testing.T) {
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := new(pingRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil || r.URL.Path != "/ping" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(&pingResponse{Count: req.Count + 1})
	}))
	defer hs.Close()

	cf := newClientFlags(t, hs.URL)
	resp, err := Post[pingResponse](context.Background(), cf, "/ping", &pingRequest{Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("wanted 2, got %d", resp.Count)
	}

	if _, err := Post[pingResponse](context.Background(), cf, "/other", &pingRequest{}); err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("wanted an http 400 error, got %v", err)
	}
}

func TestPort(t *testing.T) {
	cf := new(ClientFlags)
	t.Setenv("FLEETDECK_SERVER_PORT", "")
	if p := cf.Port(); p != DefaultPort {
		t.Fatalf("wanted default port %d, got %d", DefaultPort, p)
	}
	t.Setenv("FLEETDECK_SERVER_PORT", "12345")
	if p := cf.Port(); p != 12345 {
		t.Fatalf("wanted port from environment, got %d", p)
	}
	u := cf.WebsocketURL("/session/stream")
	if u.Scheme != "ws" || u.Port() != strconv.Itoa(12345) || u.Path != "/session/stream" {
		t.Fatalf("unexpected websocket url %s", u)
	}
}

func TestServerFlags(t *testing.T) {
	sf := &ServerFlags{IP: "not-an-ip", Port: 80}
	if _, err := sf.TCPAddr(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid, got %v", err)
	}
	sf = &ServerFlags{IP: "127.0.0.1", Port: 0}
	addr, err := sf.TCPAddr()
	if err != nil {
		t.Fatal(err)
	}
	if addr.Port != 0 || !addr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("unexpected address %s", addr)
	}
}
