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
	"fmt"
	"strings"
)

// VideoCodec selects the codec video tracks are re-encoded to.
// The zero value is H264.
type VideoCodec int

const (
	H264 VideoCodec = iota
	H265
)

type codecProfile struct {
	name    string
	aliases []string
	// engineID names the codec for the engine (FFmpeg codec name).
	engineID string
	options  map[string]string
	// extension of segment files.
	extension string
	// segmentType is the HLS segment container; empty keeps the muxer default.
	segmentType string
}

var codecProfiles = [...]codecProfile{
	H264: {
		name:      "h264",
		aliases:   []string{"avc"},
		engineID:  "h264",
		options:   map[string]string{"preset": "veryfast", "crf": "23"},
		extension: "ts",
	},
	H265: {
		name:        "h265",
		aliases:     []string{"hevc"},
		engineID:    "hevc",
		options:     map[string]string{"preset": "medium", "crf": "28"},
		extension:   "m4s",
		segmentType: "fmp4",
	},
}

// ParseVideoCodec accepts a codec name or alias, case-insensitively.
// An empty name selects H264.
func ParseVideoCodec(s string) (VideoCodec, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return H264, nil
	}
	for i, p := range codecProfiles {
		if s == p.name {
			return VideoCodec(i), nil
		}
		for _, a := range p.aliases {
			if s == a {
				return VideoCodec(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown video codec %q", s)
}

func (c VideoCodec) Valid() bool { return c >= 0 && int(c) < len(codecProfiles) }

func (c VideoCodec) profile() codecProfile {
	if !c.Valid() {
		return codecProfile{}
	}
	return codecProfiles[c]
}

func (c VideoCodec) String() string {
	if !c.Valid() {
		return fmt.Sprintf("VideoCodec(%d)", int(c))
	}
	return codecProfiles[c].name
}

// EngineID is the engine's name for the codec.
func (c VideoCodec) EngineID() string { return c.profile().engineID }

// EncoderOptions returns a fresh copy of the codec's tuning options.
func (c VideoCodec) EncoderOptions() map[string]string {
	opts := make(map[string]string, len(c.profile().options))
	for k, v := range c.profile().options {
		opts[k] = v
	}
	return opts
}

func (c VideoCodec) SegmentExtension() string { return c.profile().extension }

func (c VideoCodec) SegmentType() string { return c.profile().segmentType }
