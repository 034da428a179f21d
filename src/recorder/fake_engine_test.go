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
package recorder

import (
	"errors"
	"fmt"
	"io"
)

type fakeUnit struct {
	track  int
	timing Timing
	pos    int64
	tag    string
}

func (u *fakeUnit) Track() int { return u.track }
func (u *fakeUnit) SetTrack(i int) { u.track = i }
func (u *fakeUnit) Timing() Timing { return u.timing }
func (u *fakeUnit) SetTiming(t Timing) { u.timing = t }
func (u *fakeUnit) ClearPosition() { u.pos = -1 }
func unit(track int, ts int64) *fakeUnit { return &fakeUnit{track: track, timing: Timing{Pts: ts, Dts: ts}, pos: 1234} }

type fakeFrame struct {
	dts   int64
	pts   int64
	typed bool
}

func (f *fakeFrame) DecodeTimestamp() int64 { return f.dts }
func (f *fakeFrame) SetPresentationTimestamp(ts int64) { f.pts = ts }
func (f *fakeFrame) ClearPictureType() { f.typed = false }

type fakeSource struct {
	tracks  []Track
	meta    map[string]string
	units   []*fakeUnit
	next    int
	readErr error
	closed  bool
}

func (s *fakeSource) Tracks() []Track { return s.tracks }
func (s *fakeSource) Metadata() map[string]string { return s.meta }

func (s *fakeSource) Read() (Unit, error) {
	if s.next >= len(s.units) {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return nil, io.EOF
	}
	u := s.units[s.next]
	s.next++
	return u, nil
}

func (s *fakeSource) Close() { s.closed = true }

// fakeDecoder holds back delay frames until end of stream.
type fakeDecoder struct {
	delay   int
	pending []*fakeFrame
	eos     bool
	closed  bool
	geo     Geometry
}

func (d *fakeDecoder) Submit(u Unit) error {
	if d.eos {
		return errors.New("decoder: submit after eos")
	}
	d.pending = append(d.pending, &fakeFrame{dts: u.Timing().Dts, pts: NoTimestamp, typed: true})
	return nil
}

func (d *fakeDecoder) SubmitEOS() error { d.eos = true; return nil }

func (d *fakeDecoder) Receive() (Frame, bool, error) {
	if len(d.pending) == 0 || (!d.eos && len(d.pending) <= d.delay) {
		return nil, false, nil
	}
	f := d.pending[0]
	d.pending = d.pending[1:]
	return f, true, nil
}

func (d *fakeDecoder) Geometry() Geometry { return d.geo }
func (d *fakeDecoder) Close() { d.closed = true }

type fakeEncoder struct {
	cfg     EncoderConfig
	delay   int
	pending []*fakeUnit
	eos     bool
	closed  bool
	frames  []fakeFrame
}

func (e *fakeEncoder) Submit(f Frame) error {
	if e.eos {
		return errors.New("encoder: submit after eos")
	}
	ff := f.(*fakeFrame)
	e.frames = append(e.frames, *ff)
	e.pending = append(e.pending, &fakeUnit{track: -1, timing: Timing{Pts: ff.pts, Dts: ff.pts, Duration: 3000}, pos: 99, tag: "enc"})
	return nil
}

func (e *fakeEncoder) SubmitEOS() error { e.eos = true; return nil }

func (e *fakeEncoder) Receive() (Unit, bool, error) {
	if len(e.pending) == 0 || (!e.eos && len(e.pending) <= e.delay) {
		return nil, false, nil
	}
	u := e.pending[0]
	e.pending = e.pending[1:]
	return u, true, nil
}

func (e *fakeEncoder) Close() { e.closed = true }

type fakeOutTrack struct {
	media   MediaType
	encoded bool
}

type fakeContainer struct {
	path     string
	opts     ContainerOptions
	tracks   []fakeOutTrack
	tbs      []Rational // applied at WriteHeader
	meta     map[string]string
	header   bool
	written  []fakeUnit
	events   []string
	trailer  bool
	closed   bool
	writeErr error
}

func (c *fakeContainer) GlobalHeader() bool { return true }

func (c *fakeContainer) AddPassthroughTrack(t Track) (int, error) {
	c.tracks = append(c.tracks, fakeOutTrack{media: t.Media})
	return len(c.tracks) - 1, nil
}

func (c *fakeContainer) AddEncodedTrack(Encoder) (int, error) {
	c.tracks = append(c.tracks, fakeOutTrack{media: MediaVideo, encoded: true})
	return len(c.tracks) - 1, nil
}

func (c *fakeContainer) SetMetadata(md map[string]string) error {
	if c.header {
		return errors.New("metadata after header")
	}
	c.meta = md
	c.events = append(c.events, "metadata")
	return nil
}

func (c *fakeContainer) WriteHeader() error {
	c.header = true
	c.events = append(c.events, "header")
	return nil
}

func (c *fakeContainer) TimeBase(i int) (Rational, bool) {
	if !c.header || i < 0 || i >= len(c.tracks) {
		return Rational{}, false
	}
	if i < len(c.tbs) {
		return c.tbs[i], true
	}
	return Rational{1, 90000}, true
}

func (c *fakeContainer) WriteUnit(u Unit) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	fu := u.(*fakeUnit)
	c.written = append(c.written, *fu)
	c.events = append(c.events, fmt.Sprintf("write:%d", fu.track))
	return nil
}

func (c *fakeContainer) WriteTrailer() error {
	c.trailer = true
	c.events = append(c.events, "trailer")
	return nil
}

func (c *fakeContainer) Close() error { c.closed = true; return nil }

func (c *fakeContainer) writtenTo(track int) []fakeUnit {
	var out []fakeUnit
	for _, u := range c.written {
		if u.track == track {
			out = append(out, u)
		}
	}
	return out
}

type fakeEngine struct {
	source    *fakeSource
	openErr   error
	container *fakeContainer
	created   int
	inits     int
	noEncoder bool

	decoderDelay int
	encoderDelay int
	decoders     []*fakeDecoder
	encoders     []*fakeEncoder
}

func newFakeEngine(tracks []Track, units ...*fakeUnit) *fakeEngine {
	return &fakeEngine{
		source:    &fakeSource{tracks: tracks, units: units},
		container: &fakeContainer{},
	}
}

func (e *fakeEngine) Init() error { e.inits++; return nil }

func (e *fakeEngine) OpenSource(string, SourceOptions) (Source, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	return e.source, nil
}

func (e *fakeEngine) OpenDecoder(Track) (Decoder, error) {
	d := &fakeDecoder{delay: e.decoderDelay, geo: Geometry{Width: 640, Height: 360, FrameRate: Rational{25, 1}}}
	e.decoders = append(e.decoders, d)
	return d, nil
}

func (e *fakeEngine) OpenEncoder(cfg EncoderConfig) (Encoder, error) {
	if e.noEncoder {
		return nil, fmt.Errorf("find encoder %s: %w", cfg.Codec.EngineID(), ErrEncoderUnavailable)
	}
	enc := &fakeEncoder{cfg: cfg, delay: e.encoderDelay}
	e.encoders = append(e.encoders, enc)
	return enc, nil
}

func (e *fakeEngine) CreateContainer(path string, opts ContainerOptions) (Container, error) {
	e.created++
	e.container.path = path
	e.container.opts = opts
	return e.container, nil
}

func video(i int) Track { return Track{Index: i, Media: MediaVideo, Codec: "h264", TimeBase: Rational{1, 90000}} }
func audio(i int) Track { return Track{Index: i, Media: MediaAudio, Codec: "pcm_mulaw", TimeBase: Rational{1, 8000}} }
func subtitle(i int) Track { return Track{Index: i, Media: MediaSubtitle, Codec: "mov_text", TimeBase: Rational{1, 1000}} }
