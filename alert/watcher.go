// Copyright (c) 2025 BVK Chaitanya

// Package alert notifies the operator about worker status changes observed in
// the session snapshots.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bvk/fleetdeck/ctxutil"
	"github.com/bvk/fleetdeck/fleet"
	"github.com/bvk/fleetdeck/session"
	"github.com/visvasity/topic"
)

// Source publishes session snapshots.
type Source interface {
	Snapshot() *session.Snapshot
	Subscribe(limit int) (*topic.Receiver[*session.Snapshot], error)
}

// queueSize is the number of snapshots the watcher can fall behind by without
// missing a transition.
const queueSize = 16

// Transition is a status change of a worker between two snapshots.
type Transition struct {
	WorkerID string
	From, To fleet.Status
}

func (t *Transition) String() string {
	return fmt.Sprintf("worker %s changed status from %s to %s", t.WorkerID, t.From, t.To)
}

// Transitions returns the status changes from prev to cur in roster order.
// Workers missing in prev are not reported.
func Transitions(prev, cur *session.Snapshot) []*Transition {
	if prev == nil || cur == nil {
		return nil
	}
	var ts []*Transition
	for _, w := range cur.Workers {
		if old, ok := prev.Worker(w.ID); ok && old.Status != w.Status {
			ts = append(ts, &Transition{WorkerID: w.ID, From: old.Status, To: w.Status})
		}
	}
	return ts
}

// Watcher watches session snapshots and sends a notification for every worker
// status transition. The first snapshot sets the baseline.
type Watcher struct {
	cg ctxutil.CloseGroup

	notifiers []Notifier
}

func NewWatcher(source Source, notifiers ...Notifier) (*Watcher, error) {
	if source == nil {
		return nil, fmt.Errorf("snapshot source cannot be nil: %w", os.ErrInvalid)
	}
	if len(notifiers) == 0 {
		notifiers = []Notifier{LogNotifier{}}
	}

	updates, err := source.Subscribe(queueSize)
	if err != nil {
		return nil, fmt.Errorf("could not subscribe to session updates: %w", err)
	}
	updatesCh, err := topic.ReceiveCh(updates)
	if err != nil {
		updates.Close()
		return nil, err
	}

	w := &Watcher{
		notifiers: notifiers,
	}

	prev := source.Snapshot()
	w.cg.Go("alert-watcher", func(ctx context.Context) {
		defer updates.Close()
		w.watch(ctx, prev, updatesCh)
	})
	return w, nil
}

func (w *Watcher) Close() error {
	w.cg.Close()
	return nil
}

func (w *Watcher) watch(ctx context.Context, prev *session.Snapshot, updatesCh <-chan *session.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-updatesCh:
			if !ok {
				return
			}
			for _, t := range Transitions(prev, snap) {
				w.notify(ctx, snap.TakenAt, t.String())
			}
			prev = snap
		}
	}
}

func (w *Watcher) notify(ctx context.Context, at time.Time, msg string) {
	for _, n := range w.notifiers {
		if err := n.Notify(ctx, at, msg); err != nil {
			slog.WarnContext(ctx, "could not send alert (ignored)", "message", msg, "err", err)
		}
	}
}
