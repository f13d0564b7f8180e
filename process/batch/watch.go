package batch

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	watchTick   = 250 * time.Millisecond
	watchSettle = 300 * time.Millisecond
)

// Watch re-runs the batch whenever an image in opts.InputDir is created,
// written, renamed or removed, until ctx is cancelled. Bursts of events are
// debounced into one run. onRun, if set, receives the outcome of every run.
func Watch(ctx context.Context, opts Options, onRun func(*Report, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(opts.InputDir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", opts.InputDir)

	ticker := time.NewTicker(watchTick)
	defer ticker.Stop()
	var lastEvent time.Time
	pending := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(ev, opts.LogoName) {
				continue
			}
			opts.logV("watch event %s %s", ev.Op, filepath.Base(ev.Name))
			pending = true
			lastEvent = time.Now()
		case <-ticker.C:
			if pending && time.Since(lastEvent) > watchSettle { // stable
				pending = false
				rep, err := Run(opts)
				if err != nil {
					log.Printf("watch rescan failed: %v", err)
				}
				if onRun != nil {
					onRun(rep, err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

func relevantEvent(ev fsnotify.Event, logoName string) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return logoName == "" || !strings.EqualFold(name, logoName)
}
