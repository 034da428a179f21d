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

// Unmapped marks an input track that produces no output.
const Unmapped = -1

// StreamMapping translates input track indices to output track indices.
// Mapped indices are dense and follow track discovery order.
type StreamMapping []int

// Output returns the output index of input track in.
func (m StreamMapping) Output(in int) (int, bool) {
	if in < 0 || in >= len(m) || m[in] == Unmapped {
		return Unmapped, false
	}
	return m[in], true
}

// Mapped counts the tracks that produce output.
func (m StreamMapping) Mapped() int {
	n := 0
	for _, out := range m {
		if out != Unmapped {
			n++
		}
	}
	return n
}

func mappable(t Track) bool {
	return t.Media == MediaVideo || t.Media == MediaAudio
}

// ClassifyTracks builds the mapping for tracks without touching any output.
// Only audio and video tracks are mapped.
func ClassifyTracks(tracks []Track) (StreamMapping, error) {
	m := make(StreamMapping, len(tracks))
	next := 0
	for i, t := range tracks {
		if !mappable(t) {
			m[i] = Unmapped
			continue
		}
		m[i] = next
		next++
	}
	if next == 0 {
		return nil, ErrMissingMediaStreams
	}
	return m, nil
}

// MapStreams classifies tracks and creates their output tracks on c, in
// output index order. Video tracks get a Transcoder, stored in an arena
// indexed by input track index; other mapped tracks are copied through.
// On error every Transcoder created so far is closed.
func MapStreams(e Engine, c Container, tracks []Track, codec VideoCodec) (StreamMapping, []*Transcoder, error) {
	m, err := ClassifyTracks(tracks)
	if err != nil {
		return nil, nil, err
	}

	arena := make([]*Transcoder, len(tracks))
	fail := func(err error) (StreamMapping, []*Transcoder, error) {
		closeTranscoders(arena)
		return nil, nil, err
	}

	for i, t := range tracks {
		want, ok := m.Output(i)
		if !ok {
			continue
		}

		var got int
		if t.Media == MediaVideo {
			tc, err := NewTranscoder(e, c, t, codec)
			if err != nil {
				return fail(err)
			}
			arena[i] = tc
			got = tc.out
		} else {
			got, err = c.AddPassthroughTrack(t)
			if err != nil {
				return fail(engineErr("add passthrough track", err))
			}
		}
		if got != want {
			return fail(&InvalidStreamMappingError{Index: got})
		}
	}
	return m, arena, nil
}

func closeTranscoders(arena []*Transcoder) {
	for _, tc := range arena {
		if tc != nil {
			tc.Close()
		}
	}
}
