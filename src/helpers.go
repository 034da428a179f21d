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
	"strings"

	"github.com/e1z0/anotherhls/src/recorder"
)

// helper title, never leaks camera credentials
func safeRecordingTitle(r RecordingConfig) string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return recorder.RedactSource(r.URL)
}
