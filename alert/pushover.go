// Copyright (c) 2025 BVK Chaitanya

package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

var pushoverURL = url.URL{
	Scheme: "https",
	Host:   "api.pushover.net",
	Path:   "/1/messages.json",
}

// PushoverNotifier sends alerts as pushover notifications.
type PushoverNotifier struct {
	appKey  string
	userKey string

	endpoint   string
	httpClient *http.Client
}

func NewPushoverNotifier(appKey, userKey string) (*PushoverNotifier, error) {
	if len(appKey) == 0 || len(userKey) == 0 {
		return nil, fmt.Errorf("pushover application and user keys cannot be empty: %w", os.ErrInvalid)
	}
	n := &PushoverNotifier{
		appKey:     appKey,
		userKey:    userKey,
		endpoint:   pushoverURL.String(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	return n, nil
}

type pushoverMessage struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type pushoverResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func (n *PushoverNotifier) Notify(ctx context.Context, at time.Time, msg string) error {
	m := &pushoverMessage{
		Token:     n.appKey,
		User:      n.userKey,
		Title:     "fleetdeck",
		Message:   msg,
		Timestamp: at.Unix(),
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("could not json-encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("could not create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform post request: %w", err)
	}
	defer resp.Body.Close()

	r := new(pushoverResponse)
	if err := json.NewDecoder(resp.Body).Decode(r); err != nil {
		return fmt.Errorf("could not json-decode response for http-status %d: %w", resp.StatusCode, err)
	}
	if r.Status != 1 {
		if len(r.Errors) != 0 {
			return fmt.Errorf("send failed with http-status %d: %w", resp.StatusCode, errors.New(r.Errors[0]))
		}
		return fmt.Errorf("send failed with http-status %d and request %q", resp.StatusCode, r.Request)
	}
	return nil
}
