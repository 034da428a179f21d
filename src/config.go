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
package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/e1z0/anotherhls/src/recorder"
)

const envPrefix = "ANOTHERHLS_"

// maxDurationSeconds is the longest budget a time.Duration can hold.
const maxDurationSeconds = uint64(math.MaxInt64 / int64(time.Second))

type AppConfig struct {
	LogLevel       string            `yaml:"log_level,omitempty"`        // debug, info, warn, error
	LogFormat      string            `yaml:"log_format,omitempty"`       // text or json
	LogFile        string            `yaml:"log_file,omitempty"`         // tee logs into this file
	EngineLogLevel string            `yaml:"engine_log_level,omitempty"` // ffmpeg log level
	MetricsFile    string            `yaml:"metrics_file,omitempty"`     // prometheus textfile, rewritten after each recording
	MetricsAddr    string            `yaml:"metrics_addr,omitempty"`     // listen address for /metrics and /healthz
	Recordings     []RecordingConfig `yaml:"recordings"`
}

type RecordingConfig struct {
	Name            string    `yaml:"name,omitempty"`             // used in logs instead of the url
	URL             string    `yaml:"rtsp_url"`                   // rtsp://...
	DurationSeconds *uint64   `yaml:"duration_seconds,omitempty"` // absent = until the source ends
	RTSPTCP         bool      `yaml:"rtsp_tcp,omitempty"`         // enable tcp for rtsp?
	Probesize       int64     `yaml:"probesize,omitempty"`        // probesize param (bytes)
	AnalyzeUS       int64     `yaml:"analyze_us,omitempty"`       // analyze (microseconds)
	FFmpegParams    string    `yaml:"ffmpeg_params,omitempty"`    // -fKEY=value demuxer, -cKEY=value decoder
	HLS             HLSConfig `yaml:"hls"`
}

type HLSConfig struct {
	PlaylistPath    string  `yaml:"playlist_path"`
	SegmentDuration *uint32 `yaml:"segment_duration_seconds,omitempty"`
	PlaylistSize    *uint32 `yaml:"playlist_size,omitempty"`
	SegmentFilename string  `yaml:"segment_filename,omitempty"`
	VideoCodec      string  `yaml:"video_codec,omitempty"` // h264 (default), h265, hevc
}

// load app configuration
func loadConfig(path string) (AppConfig, error) {
	var cfg AppConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if len(c.Recordings) == 0 {
		return errors.New("no recordings defined")
	}
	for i, r := range c.Recordings {
		if strings.TrimSpace(r.URL) == "" {
			return fmt.Errorf("recordings[%d]: rtsp_url is required", i)
		}
		if strings.TrimSpace(r.HLS.PlaylistPath) == "" {
			return fmt.Errorf("recordings[%d]: hls.playlist_path is required", i)
		}
		if d := r.DurationSeconds; d != nil && *d > maxDurationSeconds {
			return fmt.Errorf("recordings[%d]: duration_seconds %d exceeds %d", i, *d, maxDurationSeconds)
		}
		if _, err := recorder.ParseVideoCodec(r.HLS.VideoCodec); err != nil {
			return fmt.Errorf("recordings[%d]: %w", i, err)
		}
	}
	return nil
}

// loadEnv reads an optional .env file, then lets ANOTHERHLS_* variables
// override the top-level settings of cfg.
func loadEnv(cfg *AppConfig, paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	_ = godotenv.Load(paths...) // a missing .env is fine

	override := func(key string, dst *string) {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	override("LOG_LEVEL", &cfg.LogLevel)
	override("LOG_FORMAT", &cfg.LogFormat)
	override("LOG_FILE", &cfg.LogFile)
	override("ENGINE_LOG_LEVEL", &cfg.EngineLogLevel)
	override("METRICS_ADDR", &cfg.MetricsAddr)
	override("METRICS_FILE", &cfg.MetricsFile)
}

// Duration converts duration_seconds exactly; nil means unbounded. Values
// past maxDurationSeconds are clamped, validate rejects them earlier.
func (r RecordingConfig) Duration() *time.Duration {
	if r.DurationSeconds == nil {
		return nil
	}
	secs := min(*r.DurationSeconds, maxDurationSeconds)
	d := time.Duration(secs) * time.Second
	return &d
}

// Request builds the recorder request. The codec was checked by validate.
func (r RecordingConfig) Request() (recorder.RecordingRequest, error) {
	codec, err := recorder.ParseVideoCodec(r.HLS.VideoCodec)
	if err != nil {
		return recorder.RecordingRequest{}, err
	}
	return recorder.RecordingRequest{
		Source: r.URL,
		SourceOptions: recorder.SourceOptions{
			TCP:             r.RTSPTCP,
			ProbeSize:       r.Probesize,
			AnalyzeDuration: r.AnalyzeUS,
			Params:          r.FFmpegParams,
		},
		Duration: r.Duration(),
		Output: recorder.HlsOutput{
			PlaylistPath:    r.HLS.PlaylistPath,
			SegmentDuration: r.HLS.SegmentDuration,
			PlaylistSize:    r.HLS.PlaylistSize,
			SegmentFilename: r.HLS.SegmentFilename,
			VideoCodec:      codec,
		},
	}, nil
}
