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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackTimestampRoundTrip(t *testing.T) {
	want := Timestamp{Year: 2009, Month: 11, Day: 17, Hour: 13, Minute: 42, Second: 30}

	raw := PackTimestamp(want, EpochXbox)
	got := UnpackTimestamp(raw, EpochXbox)

	require.Equal(t, want, got)
}

func TestUnpackTimestampEpochs(t *testing.T) {
	raw := PackTimestamp(Timestamp{Year: 2015, Month: 1, Day: 1, Hour: 0, Minute: 0, Second: 0}, EpochXbox)

	xbox := UnpackTimestamp(raw, EpochXbox)
	assert.Equal(t, 2015, xbox.Year)

	x360 := UnpackTimestamp(raw, EpochXbox360)
	assert.Equal(t, 2015-2000+1980, x360.Year)
}

func TestIsPlausibleOnlyChecksUpperYearBound(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	veryOld := Timestamp{Year: 1980, Month: 1, Day: 1}
	assert.True(t, veryOld.IsPlausible(EpochXbox, now), "no lower bound on year")

	future := Timestamp{Year: now.Year() + 5, Month: 1, Day: 1}
	assert.False(t, future.IsPlausible(EpochXbox, now))
}

func TestIsPlausibleRejectsInvalidFields(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	assert.False(t, Timestamp{Year: 2020, Month: 13, Day: 1}.IsPlausible(EpochXbox, now))
	assert.False(t, Timestamp{Year: 2020, Month: 1, Day: 32}.IsPlausible(EpochXbox, now))
	assert.False(t, Timestamp{Year: 2020, Month: 1, Day: 1, Hour: 25}.IsPlausible(EpochXbox, now))
}
