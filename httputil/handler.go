// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

// Error attaches an http status code to an error returned by a handler.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithStatus wraps err so that it is reported with the given http status code.
func WithStatus(code int, err error) error {
	return &Error{Code: code, Err: err}
}

// StatusCode returns the http status code for an error returned by a handler.
func StatusCode(err error) int {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.Code
	}
	switch {
	case errors.Is(err, os.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, os.ErrExist):
		return http.StatusConflict
	case errors.Is(err, os.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// PostJSONHandler returns a handler that decodes a JSON request body of type
// REQ, invokes fn and responds with the JSON encoded RESP.
func PostJSONHandler[REQ, RESP any](maxBytes int64, fn func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "only POST method is supported", http.StatusMethodNotAllowed)
			return
		}

		var body io.Reader = r.Body
		if maxBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		req := new(REQ)
		if err := json.NewDecoder(body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, fmt.Sprintf("could not decode request: %v", err), http.StatusBadRequest)
			return
		}
		respond(w, r, func() (*RESP, error) { return fn(r.Context(), req) })
	})
}

// GetJSONHandler returns a handler that responds to GET requests with the JSON
// encoded result of fn.
func GetJSONHandler[RESP any](fn func(context.Context) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "only GET method is supported", http.StatusMethodNotAllowed)
			return
		}
		respond(w, r, func() (*RESP, error) { return fn(r.Context()) })
	})
}

func respond[RESP any](w http.ResponseWriter, r *http.Request, fn func() (*RESP, error)) {
	resp, err := fn()
	if err != nil {
		code := StatusCode(err)
		if code >= http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		}
		http.Error(w, err.Error(), code)
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		slog.ErrorContext(r.Context(), "could not encode response", "path", r.URL.Path, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json")
	w.Write(data)
}
