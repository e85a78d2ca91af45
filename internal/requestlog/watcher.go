package requestlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/proxypal/proxypal/internal/proto"
)

// Recorder persists parsed requests.
type Recorder interface {
	Record(proto.RequestRecord) error
}

const (
	appearTimeout = 15 * time.Second
	pollEvery     = 500 * time.Millisecond
)

// Watcher tails the proxy's main.log from its current end. fsnotify wakes
// the reader as lines land; a timed poll covers filesystems where watch
// events are unreliable for appended logs. A shrinking file means rotation,
// which reopens from the start.
type Watcher struct {
	path    string
	rec     Recorder
	log     *zap.Logger
	counter atomic.Uint64
	events  chan proto.RequestRecord
}

// NewWatcher watches path and records parsed requests with rec. rec may be
// nil to only stream.
func NewWatcher(path string, rec Recorder, log *zap.Logger) *Watcher {
	return &Watcher{
		path:   path,
		rec:    rec,
		log:    log,
		events: make(chan proto.RequestRecord, 64),
	}
}

// Events streams records as they are parsed. The stream is lossy: with no
// reader on the other side records are dropped instead of stalling the tail
// loop.
func (w *Watcher) Events() <-chan proto.RequestRecord {
	return w.events
}

// Watch tails the log until ctx is done. It waits a little for the file to
// appear first, since the proxy creates it only once it starts logging.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.waitForFile(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("could not open proxy log: %w", err)
	}
	defer func() { _ = f.Close() }()

	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("could not seek proxy log: %w", err)
	}
	reader := bufio.NewReader(f)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not watch proxy log: %w", err)
	}
	defer fw.Close() //nolint:errcheck
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("could not watch proxy log: %w", err)
	}

	w.log.Info("watching proxy log", zap.String("path", w.path))

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	var partial strings.Builder
	for {
		select {
		case <-ctx.Done():
			w.log.Info("stopped watching proxy log")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("proxy log watch error", zap.Error(err))
			continue
		case <-ticker.C:
		}

		info, err := os.Stat(w.path)
		if err != nil {
			continue
		}
		if info.Size() < pos {
			// rotated or truncated, start over from the top
			if err := f.Close(); err != nil {
				w.log.Warn("could not close rotated proxy log", zap.Error(err))
			}
			f, err = os.Open(w.path)
			if err != nil {
				return fmt.Errorf("could not reopen proxy log: %w", err)
			}
			reader = bufio.NewReader(f)
			partial.Reset()
			pos = 0
			w.log.Info("proxy log rotated, rereading")
		} else if info.Size() == pos {
			continue
		}

		for {
			chunk, err := reader.ReadString('\n')
			if err != nil {
				// incomplete trailing line, keep it for the next round
				partial.WriteString(chunk)
				break
			}
			line := partial.String() + chunk
			partial.Reset()
			w.handle(line)
		}
		if n, err := f.Seek(0, io.SeekCurrent); err == nil {
			pos = n
		}
	}
}

// HandleLine parses and records a single log line. The serve loop feeds the
// proxy's stdout through here when file logging is off, so both paths share
// one parser and one recorder.
func (w *Watcher) HandleLine(line string) {
	w.handle(line)
}

func (w *Watcher) handle(line string) {
	r, ok := ParseLine(line, &w.counter)
	if !ok {
		return
	}
	if w.rec != nil {
		if err := w.rec.Record(r); err != nil {
			w.log.Warn("could not record request", zap.Error(err))
		}
	}
	select {
	case w.events <- r:
	default:
	}
}

func (w *Watcher) waitForFile(ctx context.Context) error {
	deadline := time.Now().Add(appearTimeout)
	for {
		if _, err := os.Stat(w.path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("proxy log never appeared: %s", w.path)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollEvery):
		}
	}
}
