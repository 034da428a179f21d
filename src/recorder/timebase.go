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
	"math"
	"math/big"
)

// NoTimestamp marks an unknown timestamp. It never gets rescaled.
const NoTimestamp int64 = math.MinInt64

// Rational is an exact fraction; time bases are Rationals.
type Rational struct {
	Num int
	Den int
}

func (r Rational) Valid() bool { return r.Num != 0 && r.Den != 0 }

func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// Rescale converts ts from one time base to another, rounding halfway
// cases away from zero. Invalid time bases yield NoTimestamp.
func Rescale(ts int64, from, to Rational) int64 {
	if ts == NoTimestamp || !from.Valid() || !to.Valid() {
		return NoTimestamp
	}

	num := new(big.Int).Mul(big.NewInt(ts), big.NewInt(int64(from.Num)))
	num.Mul(num, big.NewInt(int64(to.Den)))
	den := new(big.Int).Mul(big.NewInt(int64(from.Den)), big.NewInt(int64(to.Num)))
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		twice := new(big.Int).Abs(r)
		twice.Lsh(twice, 1)
		if twice.Cmp(den) >= 0 {
			if num.Sign() < 0 {
				q.Sub(q, big.NewInt(1))
			} else {
				q.Add(q, big.NewInt(1))
			}
		}
	}
	if !q.IsInt64() || q.Int64() == NoTimestamp {
		return NoTimestamp
	}
	return q.Int64()
}

// RescaleTiming rescales every timestamp of t. A zero duration stays zero.
func RescaleTiming(t Timing, from, to Rational) Timing {
	out := Timing{
		Pts: Rescale(t.Pts, from, to),
		Dts: Rescale(t.Dts, from, to),
	}
	if t.Duration > 0 {
		out.Duration = Rescale(t.Duration, from, to)
	}
	return out
}
