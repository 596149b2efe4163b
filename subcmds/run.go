// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/bvk/fleetdeck/alert"
	"github.com/bvk/fleetdeck/ctxutil"
	"github.com/bvk/fleetdeck/daemonize"
	"github.com/bvk/fleetdeck/fleet"
	"github.com/bvk/fleetdeck/httputil"
	"github.com/bvk/fleetdeck/ingest"
	"github.com/bvk/fleetdeck/server"
	"github.com/bvk/fleetdeck/session"
	"github.com/bvk/fleetdeck/subcmds/cmdutil"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
)

type Run struct {
	cmdutil.ServerFlags

	background      bool
	restart         bool
	shutdownTimeout time.Duration

	noPprof bool
	debug   bool

	configPath string
	rosterPath string
	dataDir    string

	simulate  bool
	autostart bool

	ingestRate  float64
	ingestBurst int

	telegramToken  string
	telegramChatID int64

	pushoverAppKey  string
	pushoverUserKey string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.debug, "debug", false, "when true, debug messages are also logged")
	fset.StringVar(&c.configPath, "config", "", "path to a YAML file with the session options")
	fset.StringVar(&c.rosterPath, "roster", "", "path to a YAML file with the worker roster (default is the built-in roster)")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory for the lock file and logs")
	fset.BoolVar(&c.simulate, "simulate", false, "when true, worker events are generated by the built-in simulator")
	fset.BoolVar(&c.autostart, "autostart", false, "when true, the session is started immediately")
	fset.Float64Var(&c.ingestRate, "ingest-rate", 0, "max number of ingested events per second (default 200)")
	fset.IntVar(&c.ingestBurst, "ingest-burst", 0, "max number of events in one ingestion request (default 400)")
	fset.StringVar(&c.telegramToken, "telegram-token", "", "telegram bot token for fleet alerts")
	fset.Int64Var(&c.telegramChatID, "telegram-chat-id", 0, "telegram chat id that receives fleet alerts")
	fset.StringVar(&c.pushoverAppKey, "pushover-app-key", "", "pushover application key for fleet alerts")
	fset.StringVar(&c.pushoverUserKey, "pushover-user-key", "", "pushover user key for fleet alerts")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the fleetdeck daemon in foreground"
}

func (c *Run) Description() string {
	return `
Command "run" starts the fleetdeck daemon. The daemon keeps the session state
for a fixed roster of workers and serves it over HTTP.

By default, worker events are received through the ingestion endpoint. With
the -simulate flag, events are generated locally instead.

ROSTER FILE

The worker roster is a YAML file with a list of workers:

    workers:
      - id: W-01
        status: IDLE
        proxyAddress: 192.168.1.101
        kind: Sniper (Go)
        rttMs: 45

Session options can be changed with a YAML file passed through the -config
flag. Missing keys take their default values.
`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(c.dataDir) == 0 {
		c.dataDir = filepath.Join(os.Getenv("HOME"), ".fleetdeck")
	}
	if err := os.MkdirAll(c.dataDir, 0700); err != nil {
		return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	// Background process runs in the root directory.
	for _, fpath := range []*string{&c.configPath, &c.rosterPath} {
		if len(*fpath) != 0 {
			v, err := filepath.Abs(*fpath)
			if err != nil {
				return fmt.Errorf("could not determine absolute path for %q: %w", *fpath, err)
			}
			*fpath = v
		}
	}

	addr, err := c.ServerFlags.TCPAddr()
	if err != nil {
		return err
	}

	// The parent process waits till the http server responds from the
	// background process and not from an older instance.
	check := func(ctx context.Context, child *os.Process) error {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if pid := string(data); pid != strconv.Itoa(child.Pid) {
			return fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
		}
		return nil
	}
	if c.background {
		if err := daemonize.Daemonize(ctx, nil, check); err != nil {
			return err
		}
	}

	backend, err := newLogBackend(filepath.Join(dataDir, "logs"), c.debug)
	if err != nil {
		return err
	}
	defer backend.Close()
	slog.SetDefault(slog.New(backend.Handler()))

	flock, err := c.lock(ctx, filepath.Join(dataDir, "fleetdeck.lock"))
	if err != nil {
		return err
	}
	defer flock.Unlock()

	opts := new(session.Options)
	if len(c.configPath) != 0 {
		v, err := session.OptionsFromFile(c.configPath)
		if err != nil {
			return err
		}
		opts = v
	}

	roster := fleet.DefaultRoster()
	if len(c.rosterPath) != 0 {
		v, err := fleet.RosterFromFile(c.rosterPath)
		if err != nil {
			return err
		}
		roster = v
	}

	var feed *ingest.Feed
	var ingestor ingest.Ingestor
	if c.simulate {
		var ids []string
		for _, w := range roster {
			ids = append(ids, w.ID)
		}
		ingestor = ingest.NewSimulator(ids, opts.SimulatorOptions())
	} else {
		v, err := ingest.NewFeed(0)
		if err != nil {
			return fmt.Errorf("could not create ingestion feed: %w", err)
		}
		defer v.Close()
		feed, ingestor = v, v
	}

	sess, err := session.New(ingestor, roster, opts)
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}
	defer sess.Close()

	c.secretsFromEnv()
	notifiers := []alert.Notifier{alert.LogNotifier{}}
	if len(c.telegramToken) != 0 {
		tn, err := alert.NewTelegramNotifier(ctx, c.telegramToken, c.telegramChatID)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "fleet alerts are sent through telegram", "bot", tn.BotUserName())
		notifiers = append(notifiers, tn)
	}
	if len(c.pushoverAppKey) != 0 || len(c.pushoverUserKey) != 0 {
		pn, err := alert.NewPushoverNotifier(c.pushoverAppKey, c.pushoverUserKey)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, pn)
	}
	watcher, err := alert.NewWatcher(sess, notifiers...)
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)
	slog.InfoContext(ctx, "started http server", "addrs", s.Addrs())

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	sopts := &server.Options{
		IngestRate:      c.ingestRate,
		IngestBurst:     c.ingestBurst,
		MaxRequestBytes: s.Options().MaxRequestBytes,
	}
	api, err := server.New(sess, feed, sopts)
	if err != nil {
		return err
	}
	defer api.Close()

	handlers := api.HandlerMap()
	for k, v := range handlers {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range handlers {
			s.RemoveHandler(k)
		}
	}()

	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, strconv.Itoa(os.Getpid()))
	}))

	if c.autostart {
		sess.Start()
	}
	defer sess.Stop()

	slog.InfoContext(ctx, "started fleetdeck server", "addr", addr, "session", sess.ID(), "simulate", c.simulate, "data-dir", dataDir)

	<-ctx.Done()
	slog.InfoContext(ctx, "fleetdeck server is shutting down", "cause", context.Cause(ctx))
	return nil
}

// secretsFromEnv fills in the notifier secrets that were not given as flags
// from the FLEETDECK_* environment variables.
func (c *Run) secretsFromEnv() {
	if c.telegramToken == "" {
		c.telegramToken = os.Getenv("FLEETDECK_TELEGRAM_TOKEN")
	}
	if c.telegramChatID == 0 {
		if v, err := strconv.ParseInt(os.Getenv("FLEETDECK_TELEGRAM_CHAT_ID"), 10, 64); err == nil {
			c.telegramChatID = v
		}
	}
	if c.pushoverAppKey == "" {
		c.pushoverAppKey = os.Getenv("FLEETDECK_PUSHOVER_APP_KEY")
	}
	if c.pushoverUserKey == "" {
		c.pushoverUserKey = os.Getenv("FLEETDECK_PUSHOVER_USER_KEY")
	}
}

// lock takes the data directory lock. With the restart flag, a previous owner
// is interrupted and killed if it doesn't release the lock in time.
func (c *Run) lock(ctx context.Context, lockPath string) (lockfile.Lockfile, error) {
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return "", fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err == nil {
		return flock, nil
	} else if !c.restart {
		return "", fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
	}

	owner, err := flock.GetOwner()
	if err != nil {
		return "", fmt.Errorf("could not get current owner of the lock file: %w", err)
	}
	if err := owner.Signal(os.Interrupt); err == nil {
		slog.InfoContext(ctx, "waiting for the previous instance to shutdown", "pid", owner.Pid)
		if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
			if err := owner.Signal(os.Kill); err != nil {
				return "", fmt.Errorf("could not kill current owner of the lock file: %w", err)
			}
			ctxutil.Sleep(ctx, time.Millisecond)
		}
	}
	if err := flock.TryLock(); err != nil {
		return "", fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
	}
	return flock, nil
}

// newLogBackend creates the glog-style log files under logDir.
func newLogBackend(logDir string, debug bool) (*sglog.Backend, error) {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, fmt.Errorf("could not create log directory %q: %w", logDir, err)
	}
	backend := sglog.NewBackend(&sglog.Options{
		LogDirs:              []string{logDir},
		LogFileReuseDuration: time.Hour,
	})
	if debug {
		backend.SetLevel(slog.LevelDebug)
	}
	return backend, nil
}
