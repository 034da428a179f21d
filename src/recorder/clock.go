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

import "time"

// CaptureClock tracks the wall-clock budget of a recording.
type CaptureClock struct {
	start   time.Time
	budget  time.Duration
	bounded bool
}

// StartClock starts a clock at start. A nil budget never expires.
func StartClock(start time.Time, budget *time.Duration) CaptureClock {
	c := CaptureClock{start: start}
	if budget != nil {
		c.budget = *budget
		c.bounded = true
	}
	return c
}

func (c CaptureClock) Elapsed(now time.Time) time.Duration { return now.Sub(c.start) }

// Expired reports whether the budget is used up at now.
func (c CaptureClock) Expired(now time.Time) bool {
	return c.bounded && c.Elapsed(now) >= c.budget
}
