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
package libav

import (
	"errors"
	"fmt"
	"io"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/anotherhls/src/recorder"
)

// packetUnit adapts an astiav packet to recorder.Unit.
type packetUnit struct {
	pkt *astiav.Packet
}

func (u *packetUnit) Track() int { return u.pkt.StreamIndex() }
func (u *packetUnit) SetTrack(index int) { u.pkt.SetStreamIndex(index) }
func (u *packetUnit) ClearPosition() { u.pkt.SetPos(-1) }

func (u *packetUnit) Timing() recorder.Timing {
	return recorder.Timing{Pts: u.pkt.Pts(), Dts: u.pkt.Dts(), Duration: u.pkt.Duration()}
}

func (u *packetUnit) SetTiming(t recorder.Timing) {
	u.pkt.SetPts(t.Pts)
	u.pkt.SetDts(t.Dts)
	u.pkt.SetDuration(t.Duration)
}

// trackParams is what Track.Params holds for tracks of a source.
type trackParams struct {
	stream    *astiav.Stream
	frameRate astiav.Rational
	decOpts   map[string]string
}

type source struct {
	fc     *astiav.FormatContext
	pkt    *astiav.Packet
	unit   packetUnit
	tracks []recorder.Track
}

// OpenSource opens addr and probes its streams.
func (e *Engine) OpenSource(addr string, opts recorder.SourceOptions) (recorder.Source, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("AllocFormatContext")
	}

	rd, err := newDictionary(sourceOptions(opts.TCP, opts.ProbeSize, opts.AnalyzeDuration, opts.Params))
	if err != nil {
		fc.Free()
		return nil, err
	}
	defer rd.Free()

	e.log.Debug("ffmpeg input options", "options", dictString(rd))

	if err := fc.OpenInput(addr, nil, rd); err != nil {
		fc.Free()
		return nil, fmt.Errorf("OpenInput: %w", err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("FindStreamInfo: %w", err)
	}

	s := &source{fc: fc, pkt: astiav.AllocPacket()}
	s.unit.pkt = s.pkt

	decOpts := decoderOptions(opts.Params)
	for i, st := range fc.Streams() {
		par := st.CodecParameters()
		s.tracks = append(s.tracks, recorder.Track{
			Index:    i,
			Media:    mediaType(par.MediaType()),
			Codec:    par.CodecID().String(),
			TimeBase: toRational(st.TimeBase()),
			Params: &trackParams{
				stream:    st,
				frameRate: fc.GuessFrameRate(st, nil),
				decOpts:   decOpts,
			},
		})
	}
	return s, nil
}

func (s *source) Tracks() []recorder.Track { return s.tracks }

func (s *source) Metadata() map[string]string { return dictMap(s.fc.Metadata()) }

func (s *source) Read() (recorder.Unit, error) {
	s.pkt.Unref()
	if err := s.fc.ReadFrame(s.pkt); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("ReadFrame: %w", err)
	}
	return &s.unit, nil
}

func (s *source) Close() {
	if s.pkt != nil {
		s.pkt.Free()
		s.pkt = nil
	}
	if s.fc != nil {
		s.fc.CloseInput()
		s.fc.Free()
		s.fc = nil
	}
}
