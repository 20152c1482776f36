// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fatx

import "time"

// TimestampEpoch selects the year origin a packed FATX timestamp is decoded
// against. The two dashboards pack the same bitfields but disagree on what
// year zero means.
type TimestampEpoch int

const (
	// EpochXbox is used by the Original Xbox dashboard: year = base + 2000.
	EpochXbox TimestampEpoch = 2000
	// EpochXbox360 is used by the Xbox 360 dashboard: year = base + 1980.
	EpochXbox360 TimestampEpoch = 1980
)

// Timestamp is a decoded FATX packed timestamp. Its zero value has every
// field zero; unpacking an all-zero packed value yields Year equal to the
// epoch instead, so that result is not the zero value.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int // always even; FATX only stores double-seconds
}

// IsZero reports whether every field of the timestamp is zero.
func (t Timestamp) IsZero() bool {
	return t == Timestamp{}
}

// UnpackTimestamp decodes a packed 32-bit FATX timestamp.
//
// Bit layout, MSB to LSB: year(7) month(4) day(5) hour(5) minute(6) second(5),
// where the stored second field holds seconds/2.
func UnpackTimestamp(raw uint32, epoch TimestampEpoch) Timestamp {
	return Timestamp{
		Year:   int(epoch) + int(raw>>25&0x7F),
		Month:  int(raw >> 21 & 0xF),
		Day:    int(raw >> 16 & 0x1F),
		Hour:   int(raw >> 11 & 0x1F),
		Minute: int(raw >> 5 & 0x3F),
		Second: int(raw&0x1F) * 2,
	}
}

// PackTimestamp re-encodes a Timestamp back into its 32-bit packed form.
func PackTimestamp(t Timestamp, epoch TimestampEpoch) uint32 {
	year := uint32(t.Year - int(epoch))
	var raw uint32
	raw |= (year & 0x7F) << 25
	raw |= uint32(t.Month&0xF) << 21
	raw |= uint32(t.Day&0x1F) << 16
	raw |= uint32(t.Hour&0x1F) << 11
	raw |= uint32(t.Minute&0x3F) << 5
	raw |= uint32(t.Second/2) & 0x1F
	return raw
}

// IsPlausible reports whether t could plausibly be a real timestamp rather
// than noise picked up scanning raw clusters. Only an upper bound on the
// year is enforced — a timestamp from the FATX launch year or earlier is not
// rejected, since pre-release test images legitimately carry very old dates.
func (t Timestamp) IsPlausible(epoch TimestampEpoch, now time.Time) bool {
	if t.Year > now.Year() {
		return false
	}
	if t.Month < 1 || t.Month > 12 {
		return false
	}
	if t.Day < 1 || t.Day > 31 {
		return false
	}
	if t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
		return false
	}
	return true
}

// ToWallTime converts the timestamp into a time.Time in UTC. Invalid
// field combinations (e.g. day 31 in February) normalize the way time.Date
// normalizes them rather than erroring, matching the forgiving nature of
// forensic timestamp recovery.
func (t Timestamp) ToWallTime() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, time.UTC)
}
