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
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// HlsOutput describes the presentation written for one recording.
type HlsOutput struct {
	PlaylistPath string
	// SegmentDuration is the target segment length in seconds.
	SegmentDuration *uint32
	// PlaylistSize caps how many segment URIs the playlist keeps.
	PlaylistSize *uint32
	// SegmentFilename overrides the derived segment pattern.
	SegmentFilename string
	VideoCodec      VideoCodec
}

// RecordingRequest is everything needed to run one recording.
type RecordingRequest struct {
	Source        string
	SourceOptions SourceOptions
	// Duration bounds the capture by wall-clock time; nil captures until
	// the source ends.
	Duration *time.Duration
	Output   HlsOutput
}

// DeriveSegmentTemplate returns the printf-style filename pattern for the
// segments of out. Without an explicit pattern segments sit next to the
// playlist as <stem>_%05d.<ext>. An explicit pattern is kept as is, except
// that its extension follows the codec when the codec needs its own
// segment container.
func DeriveSegmentTemplate(out HlsOutput) string {
	ext := out.VideoCodec.SegmentExtension()

	if out.SegmentFilename != "" {
		if out.VideoCodec.SegmentType() == "" {
			return out.SegmentFilename
		}
		base := strings.TrimSuffix(out.SegmentFilename, filepath.Ext(out.SegmentFilename))
		return base + "." + ext
	}

	dir, file := filepath.Split(out.PlaylistPath)
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	if stem == "" {
		stem = "segment"
	}
	return dir + stem + "_%05d." + ext
}

// containerOptions builds the HLS muxer options for out.
func containerOptions(out HlsOutput) ContainerOptions {
	opts := map[string]string{
		"hls_segment_filename": DeriveSegmentTemplate(out),
	}
	if out.SegmentDuration != nil {
		opts["hls_time"] = strconv.FormatUint(uint64(*out.SegmentDuration), 10)
	}
	if out.PlaylistSize != nil {
		opts["hls_list_size"] = strconv.FormatUint(uint64(*out.PlaylistSize), 10)
	}
	if st := out.VideoCodec.SegmentType(); st != "" {
		opts["hls_segment_type"] = st
	}
	return ContainerOptions{Format: "hls", Options: opts}
}
