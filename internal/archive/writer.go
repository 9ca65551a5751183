// Package archive persists capture entries as JSON lines in date-organized,
// size-rotated files.
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/trailstash/harlens/internal/harlog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Writer appends entries asynchronously, one JSON line each. Files live
// under <baseDir>/<yyyy-mm-dd>/<sessionID>.jsonl and rotate by size via
// lumberjack.
type Writer struct {
	baseDir     string
	sessionID   string
	maxSizeMB   int
	writeCh     chan harlog.Entry
	done        chan struct{}
	wg          sync.WaitGroup
	currentDate string
	logger      *lumberjack.Logger
	mu          sync.Mutex
}

// NewWriter creates an async entry writer. sessionID becomes the filename
// base; an empty id falls back to the startup unix timestamp.
func NewWriter(baseDir, sessionID string, bufferSize, maxSizeMB int) *Writer {
	if sessionID == "" {
		sessionID = fmt.Sprintf("%d", time.Now().Unix())
	}
	w := &Writer{
		baseDir:   baseDir,
		sessionID: sessionID,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan harlog.Entry, bufferSize),
		done:      make(chan struct{}),
	}

	w.wg.Add(1)
	go w.writeLoop()

	return w
}

// Write queues an entry for async writing. A full buffer drops the entry
// rather than blocking the capture path.
func (w *Writer) Write(entry harlog.Entry) error {
	select {
	case w.writeCh <- entry:
		return nil
	case <-w.done:
		return fmt.Errorf("writer is closed")
	default:
		slog.Warn("archive write buffer full, dropping entry", "session", w.sessionID)
		return fmt.Errorf("buffer full")
	}
}

// Close shuts down the writer and flushes pending entries.
func (w *Writer) Close() error {
	close(w.done)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case entry := <-w.writeCh:
			w.writeRecord(entry)
		case <-timeout:
			slog.Warn("archive writer close timeout, some entries may be lost", "session", w.sessionID)
			goto done
		default:
			goto done
		}
	}

done:
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		return w.logger.Close()
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case entry := <-w.writeCh:
			w.writeRecord(entry)
		case <-w.done:
			return
		}
	}
}

func (w *Writer) writeRecord(entry harlog.Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Error("Failed to marshal entry", "error", err, "session", w.sessionID)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	currentDate := time.Now().UTC().Format("2006-01-02")
	if currentDate != w.currentDate || w.logger == nil {
		w.rotateForDate(currentDate)
	}
	if w.logger == nil {
		return
	}

	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("Failed to write entry", "error", err, "session", w.sessionID)
	}
}

func (w *Writer) rotateForDate(date string) {
	if w.logger != nil {
		if err := w.logger.Close(); err != nil {
			slog.Debug("archive file close failed", "error", err)
		}
		w.logger = nil
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("Failed to create archive directory", "error", err, "dir", dir)
		return
	}

	filename := filepath.Join(dir, w.sessionID+".jsonl")
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		Compress:   false,
		LocalTime:  false,
	}

	w.currentDate = date
	slog.Info("Opened new archive file", "file", filename)
}
