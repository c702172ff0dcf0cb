package srt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Run("CommaSeparator", func(t *testing.T) {
		sec, err := ParseTimestamp("00:01:05,250")
		require.NoError(t, err)
		assert.InDelta(t, 65.25, sec, 0.0001)
	})

	t.Run("DotSeparator", func(t *testing.T) {
		sec, err := ParseTimestamp("01:02:03.500")
		require.NoError(t, err)
		assert.InDelta(t, 3723.5, sec, 0.0001)
	})

	t.Run("SurroundingWhitespace", func(t *testing.T) {
		sec, err := ParseTimestamp("  00:00:10,000 ")
		require.NoError(t, err)
		assert.InDelta(t, 10.0, sec, 0.0001)
	})

	t.Run("TwoPartClock", func(t *testing.T) {
		_, err := ParseTimestamp("01:05,250")
		var formatErr *FormatError
		require.True(t, errors.As(err, &formatErr))
	})

	t.Run("NonNumericField", func(t *testing.T) {
		_, err := ParseTimestamp("00:xx:05,250")
		var formatErr *FormatError
		require.True(t, errors.As(err, &formatErr))
	})

	t.Run("NegativeComponent", func(t *testing.T) {
		_, err := ParseTimestamp("-1:00:05,250")
		var formatErr *FormatError
		require.True(t, errors.As(err, &formatErr))
	})
}

func TestFormatTimestamp(t *testing.T) {
	t.Run("Basic", func(t *testing.T) {
		assert.Equal(t, "00:00:03,319", FormatTimestamp(3.319))
		assert.Equal(t, "01:01:01,001", FormatTimestamp(3661.001))
	})

	t.Run("NegativeClampsToZero", func(t *testing.T) {
		assert.Equal(t, "00:00:00,000", FormatTimestamp(-5.0))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		for _, sec := range []float64{0, 0.001, 1.5, 59.999, 3600.25, 7265.123} {
			got, err := ParseTimestamp(FormatTimestamp(sec))
			require.NoError(t, err)
			assert.InDelta(t, sec, got, 0.001, "round trip for %v", sec)
		}
	})
}

func TestParseRange(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		start, end, err := ParseRange("00:00:00,000 --> 00:00:03,319")
		require.NoError(t, err)
		assert.InDelta(t, 0.0, start, 0.0001)
		assert.InDelta(t, 3.319, end, 0.0001)
	})

	t.Run("TightSpacing", func(t *testing.T) {
		start, end, err := ParseRange("00:00:01,000-->00:00:02,000")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, start, 0.0001)
		assert.InDelta(t, 2.0, end, 0.0001)
	})

	t.Run("MissingArrow", func(t *testing.T) {
		_, _, err := ParseRange("00:00:01,000 00:00:02,000")
		var formatErr *FormatError
		require.True(t, errors.As(err, &formatErr))
	})

	t.Run("MalformedEnd", func(t *testing.T) {
		_, _, err := ParseRange("00:00:01,000 --> bogus")
		var formatErr *FormatError
		require.True(t, errors.As(err, &formatErr))
	})
}

func TestFormatRange(t *testing.T) {
	assert.Equal(t, "00:00:01,500 --> 00:00:04,000", FormatRange(1.5, 4.0))
}
