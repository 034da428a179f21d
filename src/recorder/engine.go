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

import "errors"

// MediaType tags the kind of elementary stream a track carries.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaVideo
	MediaAudio
	MediaSubtitle
	MediaData
)

func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaSubtitle:
		return "subtitle"
	case MediaData:
		return "data"
	}
	return "unknown"
}

// Track describes one input track as reported by the engine.
type Track struct {
	Index    int
	Media    MediaType
	Codec    string
	TimeBase Rational

	// Params is engine-owned codec state (parameters, options) needed to
	// create a decoder or a passthrough output track. Opaque to this package.
	Params any
}

// Timing holds the timestamps of a unit, expressed in its track's time base.
type Timing struct {
	Pts      int64
	Dts      int64
	Duration int64
}

// Unit is one demultiplexed or encoded piece of data of a single track.
type Unit interface {
	Track() int
	SetTrack(index int)
	Timing() Timing
	SetTiming(t Timing)
	// ClearPosition drops the byte position inherited from the source.
	ClearPosition()
}

// Frame is one decoded picture.
type Frame interface {
	DecodeTimestamp() int64
	SetPresentationTimestamp(ts int64)
	// ClearPictureType lets the encoder choose the picture type itself.
	ClearPictureType()
}

// Geometry is what a decoder negotiated for its output frames.
type Geometry struct {
	Width             int
	Height            int
	PixelFormat       int
	SampleAspectRatio Rational
	FrameRate         Rational
}

// SourceOptions tune how the engine opens a source.
type SourceOptions struct {
	TCP             bool   // force RTSP interleaved over TCP
	ProbeSize       int64  // bytes, 0 = engine default
	AnalyzeDuration int64  // microseconds, 0 = engine default
	Params          string // extra "-fKEY=value -cKEY=value" parameters
}

// EncoderConfig describes the encoder a Transcoder needs.
type EncoderConfig struct {
	Codec        VideoCodec
	Geometry     Geometry
	TimeBase     Rational
	GlobalHeader bool
	Options      map[string]string
}

// ContainerOptions are handed to the destination muxer.
type ContainerOptions struct {
	Format  string
	Options map[string]string
}

// ErrEncoderUnavailable is returned (possibly wrapped) by Engine.OpenEncoder
// when the engine has no encoder for the requested codec.
var ErrEncoderUnavailable = errors.New("encoder unavailable")

// Engine is the media toolkit doing the actual demux, decode, encode and mux work.
type Engine interface {
	// Init performs process-wide setup. It must be safe to call repeatedly.
	Init() error
	OpenSource(addr string, opts SourceOptions) (Source, error)
	OpenDecoder(track Track) (Decoder, error)
	OpenEncoder(cfg EncoderConfig) (Encoder, error)
	CreateContainer(path string, opts ContainerOptions) (Container, error)
}

// Source is an opened input.
type Source interface {
	Tracks() []Track
	// Metadata is the container-level metadata of the input.
	Metadata() map[string]string
	// Read blocks for the next unit and returns io.EOF at end of input.
	// The unit stays valid until the next call to Read.
	Read() (Unit, error)
	Close()
}

// Decoder turns units into frames.
type Decoder interface {
	Submit(u Unit) error
	SubmitEOS() error
	// Receive polls for the next decoded frame; ok is false when none is
	// available. The frame stays valid until the next call to Receive.
	Receive() (f Frame, ok bool, err error)
	Geometry() Geometry
	Close()
}

// Encoder turns frames into units.
type Encoder interface {
	Submit(f Frame) error
	SubmitEOS() error
	// Receive polls for the next encoded unit; ok is false when none is
	// available. The unit stays valid until the next call to Receive.
	Receive() (u Unit, ok bool, err error)
	Close()
}

// UnitWriter accepts units for interleaved writing.
type UnitWriter interface {
	WriteUnit(u Unit) error
}

// Container is the destination presentation being written.
type Container interface {
	UnitWriter
	// GlobalHeader reports whether encoders feeding this container must
	// emit codec headers out of band.
	GlobalHeader() bool
	AddPassthroughTrack(src Track) (int, error)
	AddEncodedTrack(enc Encoder) (int, error)
	// SetMetadata replaces the container-level metadata. It must be
	// called before WriteHeader.
	SetMetadata(md map[string]string) error
	WriteHeader() error
	// TimeBase is only meaningful after WriteHeader.
	TimeBase(index int) (Rational, bool)
	WriteTrailer() error
	Close() error
}
