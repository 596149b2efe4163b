// Copyright (c) 2025 BVK Chaitanya

package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestPushoverNotifier(t *testing.T) {
	var got pushoverMessage
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(&pushoverResponse{Errors: []string{"bad json"}})
			return
		}
		if got.Token != "app" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(&pushoverResponse{Errors: []string{"application token is invalid"}})
			return
		}
		json.NewEncoder(w).Encode(&pushoverResponse{Status: 1, Request: "r1"})
	}))
	defer hs.Close()

	if _, err := NewPushoverNotifier("", "user"); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for empty keys, got %v", err)
	}

	n, err := NewPushoverNotifier("app", "user")
	if err != nil {
		t.Fatal(err)
	}
	n.endpoint = hs.URL

	at := time.Unix(1700000000, 0)
	if err := n.Notify(context.Background(), at, "worker W-02 changed status"); err != nil {
		t.Fatal(err)
	}
	if got.User != "user" || got.Timestamp != at.Unix() || got.Message != "worker W-02 changed status" {
		t.Fatalf("unexpected message %+v", got)
	}

	n.appKey = "bad"
	if err := n.Notify(context.Background(), at, "x"); err == nil || !strings.Contains(err.Error(), "application token is invalid") {
		t.Fatalf("wanted the pushover error, got %v", err)
	}
}
