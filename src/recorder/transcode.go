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
)

// TranscoderState is the position of a Transcoder in its lifecycle.
type TranscoderState int

const (
	StateIdle TranscoderState = iota
	StateDecoding
	StateFlushingDecoder
	StateFlushingEncoder
	StateClosed
)

func (s TranscoderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateFlushingDecoder:
		return "flushing-decoder"
	case StateFlushingEncoder:
		return "flushing-encoder"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("TranscoderState(%d)", int(s))
}

var errUnbound = errors.New("transcoder has no output time base")

// Transcoder re-encodes one video track: units are decoded, every frame is
// encoded again and the encoded units go to the container.
type Transcoder struct {
	dec Decoder
	enc Encoder

	in    Rational // input track time base, also the encoder time base
	out   int
	outTB Rational

	w     UnitWriter
	obs   Observer
	state TranscoderState
}

// NewTranscoder opens a decoder for track, an encoder for codec configured
// from what the decoder negotiated, and the encoder-backed track on c.
func NewTranscoder(e Engine, c Container, track Track, codec VideoCodec) (*Transcoder, error) {
	dec, err := e.OpenDecoder(track)
	if err != nil {
		return nil, engineErr("open decoder", err)
	}

	enc, err := e.OpenEncoder(EncoderConfig{
		Codec:        codec,
		Geometry:     dec.Geometry(),
		TimeBase:     track.TimeBase,
		GlobalHeader: c.GlobalHeader(),
		Options:      codec.EncoderOptions(),
	})
	if err != nil {
		dec.Close()
		if errors.Is(err, ErrEncoderUnavailable) {
			return nil, &UnsupportedVideoCodecError{Codec: codec, Err: err}
		}
		return nil, engineErr("open encoder", err)
	}

	out, err := c.AddEncodedTrack(enc)
	if err != nil {
		enc.Close()
		dec.Close()
		return nil, engineErr("add encoded track", err)
	}

	return &Transcoder{
		dec: dec,
		enc: enc,
		in:  track.TimeBase,
		out: out,
		w:   c,
		obs: nopObserver{},
	}, nil
}

// Output is the index of the track this Transcoder writes to.
func (t *Transcoder) Output() int { return t.out }

func (t *Transcoder) State() TranscoderState { return t.state }

// bind sets the output time base, known only once the header is written.
func (t *Transcoder) bind(outTB Rational, obs Observer) {
	t.outTB = outTB
	if obs != nil {
		t.obs = obs
	}
}

// Submit decodes u and writes whatever the encoder yields.
func (t *Transcoder) Submit(u Unit) error {
	switch t.state {
	case StateIdle, StateDecoding:
	default:
		return ErrTranscoderClosed
	}
	if !t.outTB.Valid() {
		return errUnbound
	}
	t.state = StateDecoding

	if err := t.dec.Submit(u); err != nil {
		return engineErr("decode", err)
	}
	return t.drainDecoder()
}

// Finish flushes the decoder, then the encoder, writing every buffered
// unit. Calling it again is a no-op.
func (t *Transcoder) Finish() error {
	if t.state == StateClosed {
		return nil
	}
	if !t.outTB.Valid() {
		return errUnbound
	}

	t.state = StateFlushingDecoder
	if err := t.dec.SubmitEOS(); err != nil {
		return engineErr("flush decoder", err)
	}
	if err := t.drainDecoder(); err != nil {
		return err
	}

	t.state = StateFlushingEncoder
	if err := t.enc.SubmitEOS(); err != nil {
		return engineErr("flush encoder", err)
	}
	if err := t.drainEncoder(); err != nil {
		return err
	}

	t.state = StateClosed
	return nil
}

// Close releases the codecs. It does not flush.
func (t *Transcoder) Close() {
	t.dec.Close()
	t.enc.Close()
}

func (t *Transcoder) drainDecoder() error {
	for {
		f, ok, err := t.dec.Receive()
		if err != nil {
			return engineErr("receive frame", err)
		}
		if !ok {
			return nil
		}
		t.obs.FrameDecoded()

		// No reordering: frames go out in decode order.
		f.SetPresentationTimestamp(f.DecodeTimestamp())
		f.ClearPictureType()
		if err := t.enc.Submit(f); err != nil {
			return engineErr("encode", err)
		}
		if err := t.drainEncoder(); err != nil {
			return err
		}
	}
}

func (t *Transcoder) drainEncoder() error {
	for {
		u, ok, err := t.enc.Receive()
		if err != nil {
			return engineErr("receive packet", err)
		}
		if !ok {
			return nil
		}
		u.SetTrack(t.out)
		u.SetTiming(RescaleTiming(u.Timing(), t.in, t.outTB))
		u.ClearPosition()
		if err := t.w.WriteUnit(u); err != nil {
			return engineErr("write", err)
		}
		t.obs.UnitWritten(MediaVideo)
	}
}
