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

// Package libav implements the recorder media engine on FFmpeg through
// go-astiav.
package libav

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/anotherhls/src/recorder"
)

var initOnce sync.Once

// Engine is the FFmpeg media engine.
type Engine struct {
	log   *slog.Logger
	level astiav.LogLevel
}

var _ recorder.Engine = (*Engine)(nil)

// New returns an engine logging FFmpeg messages at or above level
// ("quiet", "error", "warning", "info", "verbose", "debug", "trace").
func New(log *slog.Logger, level string) *Engine {
	return &Engine{log: log, level: ParseLogLevel(level)}
}

// Init sets FFmpeg's log level and routes its messages into slog. FFmpeg
// state is process-wide, so only the first call in a process has an effect.
func (e *Engine) Init() error {
	initOnce.Do(func() {
		astiav.SetLogLevel(e.level)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, fmt, msg string) {
			msg = strings.TrimSpace(msg)
			if msg == "" {
				return
			}
			args := []any{"level", int(l)}
			if c != nil {
				if cl := c.Class(); cl != nil {
					args = append(args, "class", cl.String())
				}
			}
			e.log.Log(context.Background(), slogLevel(l), msg, args...)
		})
		e.log.Debug("ffmpeg initialized", "level", int(e.level))
	})
	return nil
}

// ParseLogLevel maps a level name to FFmpeg's. Unknown names mean warning.
func ParseLogLevel(s string) astiav.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return astiav.LogLevelQuiet
	case "panic":
		return astiav.LogLevelPanic
	case "fatal":
		return astiav.LogLevelFatal
	case "error":
		return astiav.LogLevelError
	case "info":
		return astiav.LogLevelInfo
	case "verbose":
		return astiav.LogLevelVerbose
	case "debug":
		return astiav.LogLevelDebug
	case "trace":
		return astiav.LogLevelTrace
	}
	return astiav.LogLevelWarning
}

func slogLevel(l astiav.LogLevel) slog.Level {
	switch {
	case l <= astiav.LogLevelError:
		return slog.LevelError
	case l <= astiav.LogLevelWarning:
		return slog.LevelWarn
	case l <= astiav.LogLevelInfo:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func mediaType(t astiav.MediaType) recorder.MediaType {
	switch t {
	case astiav.MediaTypeVideo:
		return recorder.MediaVideo
	case astiav.MediaTypeAudio:
		return recorder.MediaAudio
	case astiav.MediaTypeSubtitle:
		return recorder.MediaSubtitle
	case astiav.MediaTypeData:
		return recorder.MediaData
	}
	return recorder.MediaUnknown
}

func toRational(r astiav.Rational) recorder.Rational {
	return recorder.Rational{Num: r.Num(), Den: r.Den()}
}

func fromRational(r recorder.Rational) astiav.Rational {
	return astiav.NewRational(r.Num, r.Den)
}
