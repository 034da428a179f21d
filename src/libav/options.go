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
	"fmt"
	"sort"
	"strings"

	astiav "github.com/asticode/go-astiav"
)

// dictMap copies every entry of d. A nil dictionary yields an empty map.
func dictMap(d *astiav.Dictionary) map[string]string {
	m := make(map[string]string)
	if d == nil {
		return m
	}
	flags := astiav.NewDictionaryFlags(astiav.DictionaryFlagIgnoreSuffix)
	for e := d.Get("", nil, flags); e != nil; e = d.Get("", e, flags) {
		m[e.Key()] = e.Value()
	}
	return m
}

// dictString renders d as sorted key=value pairs for debug logs.
func dictString(d *astiav.Dictionary) string {
	m := dictMap(d)
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}

// paramOptions picks the options of one kind out of an ffmpeg_params
// string: 'f' tokens (-fKEY=value) go to the demuxer, 'c' tokens to the
// decoder. Tokens without a key or a value are ignored, and one level of
// matching quotes is removed from values.
func paramOptions(params string, kind byte) map[string]string {
	opts := make(map[string]string)
	for _, tok := range strings.Fields(params) {
		if len(tok) < 3 || tok[0] != '-' || tok[1] != kind {
			continue
		}
		key, val, ok := strings.Cut(tok[2:], "=")
		if !ok || key == "" || val == "" {
			continue
		}
		opts[key] = unquote(val)
	}
	return opts
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	if q := v[0]; (q == '"' || q == '\'') && v[len(v)-1] == q {
		return v[1 : len(v)-1]
	}
	return v
}

// newDictionary builds a dictionary from m. The caller frees it.
func newDictionary(m map[string]string) (*astiav.Dictionary, error) {
	d := astiav.NewDictionary()
	for k, v := range m {
		if err := d.Set(k, v, 0); err != nil {
			d.Free()
			return nil, fmt.Errorf("set option %s=%s: %w", k, v, err)
		}
	}
	return d, nil
}

// sourceOptions returns the demuxer options for an input: RTSP defaults
// first, then the -f… entries of params.
func sourceOptions(tcp bool, probesize, analyzeUS int64, params string) map[string]string {
	opts := map[string]string{
		"buffer_size": "1048576", // 1 MiB
		"timeout":     "5000000", // 5s (µs)
		"probesize":   "5000000",
	}
	if tcp {
		opts["rtsp_transport"] = "tcp"
		opts["rtsp_flags"] = "prefer_tcp"
	}
	if probesize > 0 {
		opts["probesize"] = fmt.Sprintf("%d", probesize)
	}
	if analyzeUS > 0 {
		opts["analyzeduration"] = fmt.Sprintf("%d", analyzeUS)
	}
	for k, v := range paramOptions(params, 'f') {
		opts[k] = v
	}
	return opts
}

// decoderOptions returns the -c… entries of params.
func decoderOptions(params string) map[string]string {
	return paramOptions(params, 'c')
}
