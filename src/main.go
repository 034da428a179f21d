/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * AnotherHLS
 * Copyright (C) 2025 e1z0 <e1z0@icloud.com>
 *
 * This file is part of AnotherHLS.
 *
 * AnotherHLS is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * AnotherHLS is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with AnotherHLS.  If not, see <https://www.gnu.org/licenses/>.
 */
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/e1z0/anotherhls/src/libav"
	"github.com/e1z0/anotherhls/src/recorder"
)

/*
This is the main unit of the application
*/

var version string
var build string

var app = "AnotherHLS"
var appName = "anotherhls"

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run is the whole process: 0 when every recording finished, 1 otherwise.
func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	debug := fs.Bool("debug", false, "Debug logging for the app and ffmpeg")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [-debug] <config>\n", appName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, fs.Arg(0), *debug, stderr); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, configPath string, debug bool, stderr io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	loadEnv(&cfg)
	if debug {
		cfg.LogLevel = "debug"
		cfg.EngineLogLevel = "debug"
	}

	out, closeLog, err := logOutput(cfg.LogFile, stderr)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer closeLog()
	log := newLogger(cfg.LogLevel, cfg.LogFormat, out)
	log.Info("starting", "app", app, "version", version, "build", build,
		"config", configPath, "recordings", len(cfg.Recordings))

	met := newMetrics()
	if cfg.MetricsAddr != "" {
		shutdown, err := startMetricsServer(cfg.MetricsAddr, met, log)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer shutdown()
	}

	engine := libav.New(log.With("component", "ffmpeg"), cfg.EngineLogLevel)
	rec, err := recorder.New(engine, recorder.WithLogger(log), recorder.WithObserver(met))
	if err != nil {
		return err
	}
	return runRecordings(ctx, log, rec, met, cfg)
}

// recordingRunner is the part of *recorder.Recorder used here.
type recordingRunner interface {
	Record(ctx context.Context, req recorder.RecordingRequest) error
}

// runRecordings runs the configured recordings in order and stops at the
// first failure or once ctx is done.
func runRecordings(ctx context.Context, log *slog.Logger, rec recordingRunner, met *Metrics, cfg AppConfig) error {
	for i, rc := range cfg.Recordings {
		if err := ctx.Err(); err != nil {
			log.Warn("skipping remaining recordings", "remaining", len(cfg.Recordings)-i)
			return err
		}
		req, err := rc.Request()
		if err != nil {
			return fmt.Errorf("recordings[%d]: %w", i, err)
		}

		title := safeRecordingTitle(rc)
		log.Info("recording started", "recording", title, "playlist", req.Output.PlaylistPath,
			"codec", req.Output.VideoCodec, "segments", recorder.DeriveSegmentTemplate(req.Output))

		started := time.Now()
		err = rec.Record(ctx, req)
		elapsed := time.Since(started)
		met.RecordingFinished(err, elapsed)
		if cfg.MetricsFile != "" {
			if werr := met.WriteTextfile(cfg.MetricsFile); werr != nil {
				log.Warn("metrics textfile not written", "path", cfg.MetricsFile, "error", werr)
			}
		}
		if err != nil {
			log.Error("recording failed", "recording", title, "error", err)
			return err
		}
		log.Info("recording finished", "recording", title, "elapsed", elapsed.Round(time.Millisecond))
	}
	return nil
}

// startMetricsServer listens on addr right away so a bad address fails the
// run before any recording starts.
func startMetricsServer(addr string, met *Metrics, log *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: newRouter(met), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()
	log.Info("metrics server listening", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("metrics server shutdown", "error", err)
		}
	}, nil
}
