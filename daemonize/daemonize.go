// Copyright (c) 2025 BVK Chaitanya

// Package daemonize restarts the current program as a background process.
package daemonize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/fleetdeck/ctxutil"
	"golang.org/x/sys/unix"
)

// CheckFunc reports whether the background process has finished its
// initialization. It is retried till it returns nil or the parent gives up.
type CheckFunc func(ctx context.Context, child *os.Process) error

type Options struct {
	// EnvKey names the environment variable that marks the background
	// process. It holds the parent process id.
	EnvKey string

	// SyslogTag is the tag for the standard logger in the background process.
	SyslogTag string

	// CheckInterval is the time between two check function calls.
	CheckInterval time.Duration

	// CheckTimeout is the maximum time to wait for the background process.
	CheckTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.EnvKey == "" {
		v.EnvKey = "FLEETDECK_DAEMONIZE"
	}
	if v.SyslogTag == "" {
		v.SyslogTag = "fleetdeck"
	}
	if v.CheckInterval == 0 {
		v.CheckInterval = time.Second
	}
	if v.CheckTimeout == 0 {
		v.CheckTimeout = time.Minute
	}
}

// IsChild returns true in the background process.
func IsChild(opts *Options) bool {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return len(os.Getenv(opts.EnvKey)) != 0
}

// Daemonize respawns the current program in the background with the same
// command-line arguments. It must be called early, before any files are locked
// or servers are started.
//
// In the parent process, Daemonize waits for the check function to succeed and
// exits, or returns an error when the background process dies or doesn't
// initialize in time. In the background process, Daemonize detaches from the
// controlling terminal and returns nil.
func Daemonize(ctx context.Context, opts *Options, check CheckFunc) error {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	if !IsChild(opts) {
		if err := startChild(ctx, opts, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := detach(opts); err != nil {
		slog.Error("could not detach the background process", "err", err)
		os.Exit(1)
	}
	return nil
}

func startChild(ctx context.Context, opts *Options, check CheckFunc) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("could not lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	// SIGCHLD cancels the wait when the background process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	env := append(os.Environ(), fmt.Sprintf("%s=%d", opts.EnvKey, os.Getpid()))
	attr := &os.ProcAttr{
		Dir:   "/",
		Env:   env,
		Files: []*os.File{devnull, devnull, devnull},
	}
	child, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("could not start background process: %w", err)
	}
	if check == nil {
		return nil
	}

	retry := func() error {
		if err := check(ctx, child); err != nil {
			slog.WarnContext(ctx, "background process is not yet initialized", "pid", child.Pid, "err", err)
			return err
		}
		return nil
	}
	if err := ctxutil.RetryTimeout(ctx, opts.CheckInterval, opts.CheckTimeout, retry); err != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return fmt.Errorf("could not initialize the background process: %w", cause)
		}
		return fmt.Errorf("could not initialize the background process: %w", err)
	}
	return nil
}

func detach(opts *Options) error {
	syslogger, err := syslog.New(syslog.LOG_INFO, opts.SyslogTag)
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
