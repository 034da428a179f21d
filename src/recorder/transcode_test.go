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
	"testing"
)

func newBoundTranscoder(t *testing.T, e *fakeEngine, outTB Rational) *Transcoder {
	t.Helper()
	tc, err := NewTranscoder(e, e.container, video(0), H264)
	if err != nil {
		t.Fatalf("NewTranscoder() error = %v", err)
	}
	e.container.header = true
	tc.bind(outTB, nil)
	return tc
}

func TestTranscoderFlushWritesEverything(t *testing.T) {
	e := newFakeEngine(nil)
	e.decoderDelay = 2
	e.encoderDelay = 1
	tc := newBoundTranscoder(t, e, Rational{1, 1000})

	for _, ts := range []int64{0, 3600, 7200, 10800} {
		if err := tc.Submit(unit(0, ts)); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	if tc.State() != StateDecoding {
		t.Errorf("state = %v, want decoding", tc.State())
	}
	// 2 frames held by the decoder, 1 unit by the encoder.
	if n := len(e.container.written); n != 1 {
		t.Fatalf("written before flush = %d, want 1", n)
	}

	if err := tc.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if tc.State() != StateClosed {
		t.Errorf("state = %v, want closed", tc.State())
	}

	written := e.container.written
	if len(written) != 4 {
		t.Fatalf("written = %d, want 4", len(written))
	}
	for i, want := range []int64{0, 40, 80, 120} {
		u := written[i]
		if u.timing.Pts != want || u.timing.Dts != want {
			t.Errorf("unit %d timing = %+v, want pts/dts %d", i, u.timing, want)
		}
		if u.timing.Duration != 33 {
			t.Errorf("unit %d duration = %d, want 33", i, u.timing.Duration)
		}
		if u.track != tc.Output() {
			t.Errorf("unit %d track = %d, want %d", i, u.track, tc.Output())
		}
		if u.pos != -1 {
			t.Errorf("unit %d position not cleared", i)
		}
	}

	enc := e.encoders[0]
	for i, f := range enc.frames {
		if f.pts != f.dts {
			t.Errorf("frame %d pts %d != dts %d", i, f.pts, f.dts)
		}
		if f.typed {
			t.Errorf("frame %d picture type not cleared", i)
		}
	}
}

func TestTranscoderFinishTwiceIsNoop(t *testing.T) {
	e := newFakeEngine(nil)
	tc := newBoundTranscoder(t, e, Rational{1, 90000})

	if err := tc.Submit(unit(0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := tc.Finish(); err != nil {
		t.Fatal(err)
	}
	n := len(e.container.written)
	if err := tc.Finish(); err != nil {
		t.Fatalf("second Finish() error = %v", err)
	}
	if len(e.container.written) != n {
		t.Error("second Finish() wrote units")
	}
}

func TestTranscoderSubmitAfterFinish(t *testing.T) {
	e := newFakeEngine(nil)
	tc := newBoundTranscoder(t, e, Rational{1, 90000})

	if err := tc.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := tc.Submit(unit(0, 0)); !errors.Is(err, ErrTranscoderClosed) {
		t.Errorf("Submit() after Finish error = %v, want ErrTranscoderClosed", err)
	}
}

func TestTranscoderRequiresOutputTimeBase(t *testing.T) {
	e := newFakeEngine(nil)
	tc, err := NewTranscoder(e, e.container, video(0), H264)
	if err != nil {
		t.Fatal(err)
	}
	if err := tc.Submit(unit(0, 0)); err == nil {
		t.Error("Submit() before bind succeeded")
	}
}

func TestTranscoderWriteError(t *testing.T) {
	e := newFakeEngine(nil)
	tc := newBoundTranscoder(t, e, Rational{1, 90000})
	boom := errors.New("disk full")
	e.container.writeErr = boom

	err := tc.Submit(unit(0, 0))

	var eerr *EngineError
	if !errors.As(err, &eerr) || !errors.Is(err, boom) {
		t.Fatalf("Submit() error = %v, want EngineError wrapping %v", err, boom)
	}
}

func TestTranscoderClose(t *testing.T) {
	e := newFakeEngine(nil)
	tc := newBoundTranscoder(t, e, Rational{1, 90000})
	tc.Close()
	if !e.decoders[0].closed || !e.encoders[0].closed {
		t.Error("codecs not closed")
	}
}
