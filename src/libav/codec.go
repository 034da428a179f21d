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

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/anotherhls/src/recorder"
)

// encoderIDs resolves recorder codec identifiers to FFmpeg codec ids.
var encoderIDs = map[string]astiav.CodecID{
	"h264": astiav.CodecIDH264,
	"hevc": astiav.CodecIDHevc,
}

type videoFrame struct {
	f *astiav.Frame
}

func (v *videoFrame) DecodeTimestamp() int64 { return v.f.PktDts() }
func (v *videoFrame) SetPresentationTimestamp(ts int64) { v.f.SetPts(ts) }
func (v *videoFrame) ClearPictureType() { v.f.SetPictureType(astiav.PictureTypeNone) }

// drained reports whether err only means "no output right now".
func drained(err error) bool {
	return errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof)
}

type decoder struct {
	ctx   *astiav.CodecContext
	frame videoFrame
}

// OpenDecoder opens a software decoder for a track of a source opened by e.
func (e *Engine) OpenDecoder(track recorder.Track) (recorder.Decoder, error) {
	p, ok := track.Params.(*trackParams)
	if !ok {
		return nil, fmt.Errorf("track %d was not opened by this engine", track.Index)
	}
	par := p.stream.CodecParameters()

	dec := astiav.FindDecoder(par.CodecID())
	if dec == nil {
		return nil, fmt.Errorf("FindDecoder(%s) nil", par.CodecID())
	}
	ctx := astiav.AllocCodecContext(dec)
	if ctx == nil {
		return nil, errors.New("AllocCodecContext(decoder) nil")
	}
	if err := par.ToCodecContext(ctx); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("ToCodecContext: %w", err)
	}
	if fr := p.frameRate; fr.Num() > 0 && fr.Den() > 0 {
		ctx.SetFramerate(fr)
	}
	ctx.SetTimeBase(p.stream.TimeBase())

	vopts, err := newDictionary(p.decOpts)
	if err != nil {
		ctx.Free()
		return nil, err
	}
	defer vopts.Free()
	e.log.Debug("ffmpeg decoder options", "track", track.Index, "decoder", dec.Name(), "options", dictString(vopts))

	if err := ctx.Open(dec, vopts); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("open decoder %s: %w", dec.Name(), err)
	}
	return &decoder{ctx: ctx, frame: videoFrame{f: astiav.AllocFrame()}}, nil
}

func (d *decoder) Submit(u recorder.Unit) error {
	pu, ok := u.(*packetUnit)
	if !ok {
		return fmt.Errorf("unit %T was not produced by this engine", u)
	}
	return d.ctx.SendPacket(pu.pkt)
}

func (d *decoder) SubmitEOS() error { return d.ctx.SendPacket(nil) }

func (d *decoder) Receive() (recorder.Frame, bool, error) {
	if err := d.ctx.ReceiveFrame(d.frame.f); err != nil {
		if drained(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &d.frame, true, nil
}

func (d *decoder) Geometry() recorder.Geometry {
	return recorder.Geometry{
		Width:             d.ctx.Width(),
		Height:            d.ctx.Height(),
		PixelFormat:       int(d.ctx.PixelFormat()),
		SampleAspectRatio: toRational(d.ctx.SampleAspectRatio()),
		FrameRate:         toRational(d.ctx.Framerate()),
	}
}

func (d *decoder) Close() {
	if d.frame.f != nil {
		d.frame.f.Free()
		d.frame.f = nil
	}
	if d.ctx != nil {
		d.ctx.Free()
		d.ctx = nil
	}
}

type encoder struct {
	codec *astiav.Codec
	ctx   *astiav.CodecContext
	pkt   *astiav.Packet
	unit  packetUnit
}

// OpenEncoder opens a video encoder. An unknown codec or a build without
// an encoder for it yields recorder.ErrEncoderUnavailable.
func (e *Engine) OpenEncoder(cfg recorder.EncoderConfig) (recorder.Encoder, error) {
	id, ok := encoderIDs[cfg.Codec.EngineID()]
	if !ok {
		return nil, fmt.Errorf("codec %q: %w", cfg.Codec.EngineID(), recorder.ErrEncoderUnavailable)
	}
	codec := astiav.FindEncoder(id)
	if codec == nil {
		return nil, fmt.Errorf("FindEncoder(%s): %w", id, recorder.ErrEncoderUnavailable)
	}

	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, errors.New("AllocCodecContext(encoder) nil")
	}
	g := cfg.Geometry
	ctx.SetWidth(g.Width)
	ctx.SetHeight(g.Height)
	ctx.SetPixelFormat(astiav.PixelFormat(g.PixelFormat))
	ctx.SetSampleAspectRatio(fromRational(g.SampleAspectRatio))
	if g.FrameRate.Valid() {
		ctx.SetFramerate(fromRational(g.FrameRate))
	}
	ctx.SetTimeBase(fromRational(cfg.TimeBase))
	if cfg.GlobalHeader {
		ctx.SetFlags(ctx.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	opts, err := newDictionary(cfg.Options)
	if err != nil {
		ctx.Free()
		return nil, err
	}
	defer opts.Free()
	e.log.Debug("ffmpeg encoder options", "encoder", codec.Name(), "size", fmt.Sprintf("%dx%d", g.Width, g.Height),
		"time_base", cfg.TimeBase, "options", dictString(opts))

	if err := ctx.Open(codec, opts); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("open encoder %s: %w", codec.Name(), err)
	}

	enc := &encoder{codec: codec, ctx: ctx, pkt: astiav.AllocPacket()}
	enc.unit.pkt = enc.pkt
	return enc, nil
}

func (enc *encoder) Submit(f recorder.Frame) error {
	vf, ok := f.(*videoFrame)
	if !ok {
		return fmt.Errorf("frame %T was not produced by this engine", f)
	}
	err := enc.ctx.SendFrame(vf.f)
	vf.f.Unref()
	return err
}

func (enc *encoder) SubmitEOS() error { return enc.ctx.SendFrame(nil) }

func (enc *encoder) Receive() (recorder.Unit, bool, error) {
	enc.pkt.Unref()
	if err := enc.ctx.ReceivePacket(enc.pkt); err != nil {
		if drained(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &enc.unit, true, nil
}

func (enc *encoder) Close() {
	if enc.pkt != nil {
		enc.pkt.Free()
		enc.pkt = nil
	}
	if enc.ctx != nil {
		enc.ctx.Free()
		enc.ctx = nil
	}
}
