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

// Package recorder captures network media sources into HLS presentations.
// Audio is copied through, video is re-encoded, and the container is
// finalized on every exit path.
package recorder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Observer is told about the units flowing through a recording.
type Observer interface {
	UnitRead(media MediaType)
	UnitSkipped()
	UnitWritten(media MediaType)
	FrameDecoded()
}

type nopObserver struct{}

func (nopObserver) UnitRead(MediaType) {}
func (nopObserver) UnitSkipped() {}
func (nopObserver) UnitWritten(MediaType) {}
func (nopObserver) FrameDecoded() {}

// Recorder runs recordings one at a time on a media engine.
type Recorder struct {
	engine Engine
	log    *slog.Logger
	obs    Observer
	now    func() time.Time
}

type Option func(*Recorder)

func WithLogger(l *slog.Logger) Option { return func(r *Recorder) { r.log = l } }

func WithObserver(o Observer) Option { return func(r *Recorder) { r.obs = o } }

// WithClock replaces time.Now for the capture budget.
func WithClock(now func() time.Time) Option { return func(r *Recorder) { r.now = now } }

// New initializes the engine and returns a Recorder. Engine initialization
// is guarded by the engine, so creating several Recorders is fine.
func New(engine Engine, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		engine: engine,
		log:    slog.Default(),
		obs:    nopObserver{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With("component", "recorder")

	if err := engine.Init(); err != nil {
		return nil, engineErr("init", err)
	}
	return r, nil
}

// Record captures req.Source into req.Output until the source ends, the
// duration budget runs out or ctx is done. Budget and ctx are checked once
// per consumed unit. Any error comes back as a *RecordingError; files
// already written stay on disk.
func (r *Recorder) Record(ctx context.Context, req RecordingRequest) error {
	if err := r.record(ctx, req); err != nil {
		return &RecordingError{Source: req.Source, Err: err}
	}
	return nil
}

func (r *Recorder) record(ctx context.Context, req RecordingRequest) error {
	log := r.log.With("source", RedactSource(req.Source), "playlist", req.Output.PlaylistPath)

	src, err := r.engine.OpenSource(req.Source, req.SourceOptions)
	if err != nil {
		return engineErr("open source", err)
	}
	defer src.Close()

	tracks := src.Tracks()
	// Fail before anything exists on disk.
	if _, err := ClassifyTracks(tracks); err != nil {
		return err
	}

	if dir := filepath.Dir(req.Output.PlaylistPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IOError{Op: "create directory", Path: dir, Err: err}
		}
	}

	copts := containerOptions(req.Output)
	log.Debug("opening container", "format", copts.Format, "options", copts.Options)
	c, err := r.engine.CreateContainer(req.Output.PlaylistPath, copts)
	if err != nil {
		return engineErr("create container", err)
	}
	defer c.Close()

	mapping, arena, err := MapStreams(r.engine, c, tracks, req.Output.VideoCodec)
	if err != nil {
		return err
	}
	defer closeTranscoders(arena)

	if md := src.Metadata(); len(md) > 0 {
		if err := c.SetMetadata(md); err != nil {
			return engineErr("set metadata", err)
		}
		log.Debug("metadata copied", "entries", len(md))
	}

	if err := c.WriteHeader(); err != nil {
		return engineErr("write header", err)
	}

	outTB := make([]Rational, mapping.Mapped())
	for i := range outTB {
		tb, ok := c.TimeBase(i)
		if !ok {
			return &InvalidStreamMappingError{Index: i}
		}
		outTB[i] = tb
	}
	for _, tc := range arena {
		if tc != nil {
			tc.bind(outTB[tc.out], r.obs)
		}
	}
	for i, t := range tracks {
		if out, ok := mapping.Output(i); ok {
			log.Info("track mapped", "input", i, "output", out, "media", t.Media,
				"codec", t.Codec, "transcode", arena[i] != nil, "in_tb", t.TimeBase, "out_tb", outTB[out])
		}
	}

	s := &session{
		log:     log,
		src:     src,
		c:       c,
		tracks:  tracks,
		mapping: mapping,
		arena:   arena,
		outTB:   outTB,
		clock:   StartClock(r.now(), req.Duration),
	}
	stopErr := r.consume(ctx, s)
	if stopErr != nil && !errors.Is(stopErr, context.Canceled) && !errors.Is(stopErr, context.DeadlineExceeded) {
		return stopErr
	}

	for _, tc := range arena {
		if tc == nil {
			continue
		}
		if err := tc.Finish(); err != nil {
			return err
		}
	}

	if err := c.WriteTrailer(); err != nil {
		return engineErr("write trailer", err)
	}
	log.Info("container finalized", "elapsed", s.clock.Elapsed(r.now()).Round(time.Millisecond))
	return stopErr
}

// session is the state of one recording once its header is written.
type session struct {
	log     *slog.Logger
	src     Source
	c       Container
	tracks  []Track
	mapping StreamMapping
	arena   []*Transcoder // by input track index, nil unless transcoded
	outTB   []Rational    // by output index, frozen
	clock   CaptureClock
}

// consume pulls units until end of input, budget expiry or cancellation.
// Cancellation is returned as ctx.Err() so the caller can still finalize.
func (r *Recorder) consume(ctx context.Context, s *session) error {
	for {
		u, err := s.src.Read()
		if errors.Is(err, io.EOF) {
			s.log.Info("end of input")
			return nil
		}
		if err != nil {
			return engineErr("read", err)
		}

		in := u.Track()
		if in < 0 || in >= len(s.mapping) {
			return &InvalidStreamMappingError{Index: in}
		}
		media := s.tracks[in].Media
		r.obs.UnitRead(media)

		if out, ok := s.mapping.Output(in); !ok {
			r.obs.UnitSkipped()
		} else if tc := s.arena[in]; tc != nil {
			if err := tc.Submit(u); err != nil {
				return err
			}
		} else {
			if err := relay(s.c, u, s.tracks[in].TimeBase, s.outTB[out], out); err != nil {
				return err
			}
			r.obs.UnitWritten(media)
		}

		if now := r.now(); s.clock.Expired(now) {
			s.log.Info("duration limit reached", "elapsed", s.clock.Elapsed(now).Round(time.Millisecond))
			return nil
		}
		if err := ctx.Err(); err != nil {
			s.log.Warn("recording interrupted", "error", err)
			return err
		}
	}
}

// relay copies a passthrough unit to output track out.
func relay(w UnitWriter, u Unit, from, to Rational, out int) error {
	u.SetTiming(RescaleTiming(u.Timing(), from, to))
	u.ClearPosition()
	u.SetTrack(out)
	return engineErr("write", w.WriteUnit(u))
}
