package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trailstash/harlens/internal/analyzer"
	"github.com/trailstash/harlens/internal/archive"
	"github.com/trailstash/harlens/internal/capture"
	"github.com/trailstash/harlens/internal/cdp"
	"github.com/trailstash/harlens/internal/config"
	"github.com/trailstash/harlens/internal/harlog"
	"github.com/trailstash/harlens/internal/notify"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appVersion = "0.3.0"

func main() {
	cfg, err := config.LoadRecorder()
	if err != nil {
		slog.Error("failed to load recorder config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("recorder config loaded",
		"cdp_address", cfg.CDPAddress,
		"cdp_port", cfg.CDPPort,
		"data_dir", cfg.DataDir,
		"tab_url_filter", cfg.TabURLFilter,
		"reload_on_attach", cfg.ReloadOnAttach,
		"max_body_bytes", cfg.MaxBodyBytes,
		"live_capacity", cfg.LiveCapacity,
	)

	svc := analyzer.NewService(appVersion, cfg.LiveCapacity)
	snap, err := svc.StartLive(context.Background())
	if err != nil {
		slog.Error("failed to start live session", "error", err)
		os.Exit(1)
	}
	slog.Info("Live session started", "session_id", snap.SessionID)

	writer := archive.NewWriter(cfg.DataDir, snap.SessionID, cfg.BufferSize, cfg.MaxFileSizeMB)
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Warn("Archive writer close failed", "error", err)
		}
	}()

	pipeline := capture.NewPipeline(cfg.MaxBodyBytes,
		func(e harlog.Entry) { svc.Feed(e) },
		func(e harlog.Entry) {
			if err := writer.Write(e); err != nil {
				slog.Debug("archive write failed", "error", err)
			}
		},
	)
	defer pipeline.Close()

	cdpClient := cdp.NewClient(cfg, pipeline)
	if err := cdpClient.Connect(context.Background()); err != nil {
		slog.Error("Failed to connect to browser", "error", err)
		slog.Info("Make sure the browser is running with remote debugging enabled")
		os.Exit(1)
	}
	defer func() {
		if err := cdpClient.Close(); err != nil {
			slog.Warn("CDP close failed", "error", err)
		}
	}()

	slog.Info("Recorder running", "tabs", cdpClient.GetTabCount(), "output_dir", cfg.DataDir)
	slog.Info("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("Shutdown signal received")

	final, err := svc.StopLive(context.Background())
	if err != nil {
		slog.Warn("Live session stop failed", "error", err)
	} else {
		slog.Info("Live session stopped", "session_id", final.SessionID, "entries", final.Count, "bytes", final.TotalBytes)
		if cfg.NotifyEndpoint != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := notify.Send(ctx, http.DefaultClient, cfg.NotifyEndpoint, notify.SessionSummary(final)); err != nil {
				slog.Warn("Session notification failed", "endpoint", cfg.NotifyEndpoint, "error", err)
			}
		}
	}

	slog.Info("Recorder stopped")
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
