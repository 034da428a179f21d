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

type container struct {
	fc   *astiav.FormatContext
	pb   *astiav.IOContext
	opts map[string]string
}

// CreateContainer allocates an output context for path with the muxer named
// by opts.Format. Muxer options are applied when the header is written.
func (e *Engine) CreateContainer(path string, opts recorder.ContainerOptions) (recorder.Container, error) {
	oc, err := astiav.AllocOutputFormatContext(nil, opts.Format, path)
	if err != nil {
		return nil, fmt.Errorf("AllocOutputFormatContext: %w", err)
	}
	if oc == nil {
		return nil, errors.New("AllocOutputFormatContext nil")
	}
	c := &container{fc: oc, opts: opts.Options}

	// The hls muxer opens its own files; others need an IO context.
	if !oc.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		pb, err := astiav.OpenIOContext(path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
		if err != nil {
			oc.Free()
			return nil, fmt.Errorf("OpenIOContext: %w", err)
		}
		oc.SetPb(pb)
		c.pb = pb
	}
	return c, nil
}

func (c *container) GlobalHeader() bool {
	return c.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader)
}

// AddPassthroughTrack copies the codec parameters of src. The codec tag is
// cleared so the muxer picks one valid for its own format.
func (c *container) AddPassthroughTrack(src recorder.Track) (int, error) {
	p, ok := src.Params.(*trackParams)
	if !ok {
		return 0, fmt.Errorf("track %d was not opened by this engine", src.Index)
	}
	os := c.fc.NewStream(nil)
	if os == nil {
		return 0, errors.New("NewStream nil")
	}
	if err := p.stream.CodecParameters().Copy(os.CodecParameters()); err != nil {
		return 0, fmt.Errorf("copy codec parameters: %w", err)
	}
	os.CodecParameters().SetCodecTag(0)
	return os.Index(), nil
}

func (c *container) AddEncodedTrack(e recorder.Encoder) (int, error) {
	enc, ok := e.(*encoder)
	if !ok {
		return 0, fmt.Errorf("encoder %T was not opened by this engine", e)
	}
	os := c.fc.NewStream(enc.codec)
	if os == nil {
		return 0, errors.New("NewStream nil")
	}
	if err := enc.ctx.ToCodecParameters(os.CodecParameters()); err != nil {
		return 0, fmt.Errorf("ToCodecParameters: %w", err)
	}
	os.SetTimeBase(enc.ctx.TimeBase())
	return os.Index(), nil
}

// SetMetadata hands md to the output context, which owns it from then on.
// The hls muxer passes it to every segment.
func (c *container) SetMetadata(md map[string]string) error {
	d, err := newDictionary(md)
	if err != nil {
		return err
	}
	c.fc.SetMetadata(d)
	return nil
}

func (c *container) WriteHeader() error {
	d, err := newDictionary(c.opts)
	if err != nil {
		return err
	}
	defer d.Free()
	if err := c.fc.WriteHeader(d); err != nil {
		return fmt.Errorf("WriteHeader: %w", err)
	}
	return nil
}

func (c *container) TimeBase(index int) (recorder.Rational, bool) {
	streams := c.fc.Streams()
	if index < 0 || index >= len(streams) {
		return recorder.Rational{}, false
	}
	return toRational(streams[index].TimeBase()), true
}

func (c *container) WriteUnit(u recorder.Unit) error {
	pu, ok := u.(*packetUnit)
	if !ok {
		return fmt.Errorf("unit %T was not produced by this engine", u)
	}
	if err := c.fc.WriteInterleavedFrame(pu.pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return err
	}
	return nil
}

func (c *container) WriteTrailer() error { return c.fc.WriteTrailer() }

func (c *container) Close() error {
	var err error
	if c.pb != nil {
		err = c.pb.Close()
		c.pb.Free()
		c.pb = nil
	}
	if c.fc != nil {
		c.fc.Free()
		c.fc = nil
	}
	return err
}
