package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 9, Minute: 5}, c)
	assert.Equal(t, "09:05", c.String())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("noon")
	assert.Error(t, err)
}

func TestNewClockBounds(t *testing.T) {
	_, err := NewClock(24, 0)
	assert.Error(t, err)
	_, err = NewClock(0, 60)
	assert.Error(t, err)
	c, err := NewClock(23, 59)
	require.NoError(t, err)
	assert.Equal(t, "23:59", c.String())
}

func TestWithDateKeepsClock(t *testing.T) {
	due := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	got := WithDate(&due, New(2026, 4, 2), time.Now())
	assert.Equal(t, time.Date(2026, 4, 2, 14, 30, 0, 0, time.UTC), got)
}

func TestWithClockKeepsDate(t *testing.T) {
	due := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	got := WithClock(&due, Clock{Hour: 8, Minute: 15}, time.Now())
	assert.Equal(t, time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC), got)
}

func TestNilDueDefaultsToNow(t *testing.T) {
	now := time.Date(2026, 5, 6, 7, 8, 9, 10, time.UTC)

	got := WithDate(nil, New(2026, 6, 1), now)
	assert.Equal(t, time.Date(2026, 6, 1, 7, 8, 0, 0, time.UTC), got)

	got = WithClock(nil, Clock{Hour: 22, Minute: 0}, now)
	assert.Equal(t, time.Date(2026, 5, 6, 22, 0, 0, 0, time.UTC), got)
}

func TestTruncateMinuteProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sec := rapid.Int64Range(0, 4102444800).Draw(rt, "sec")
		nsec := rapid.Int64Range(0, 999999999).Draw(rt, "nsec")
		in := time.Unix(sec, nsec).UTC()
		out := TruncateMinute(in)
		if out.Second() != 0 || out.Nanosecond() != 0 {
			rt.Fatalf("seconds not zeroed: %v", out)
		}
		if in.Sub(out) >= time.Minute || in.Before(out) {
			rt.Fatalf("truncation moved too far: %v -> %v", in, out)
		}
	})
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := New(2026, 1, 31)
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-31"`, string(data))

	var back Date
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, d, back)
}
