package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "iso", in: "2024-01-15", want: "2024-01-15", ok: true},
		{name: "iso single digit", in: "2024-1-5", want: "2024-01-05", ok: true},
		{name: "slash year first", in: "2024/1/5", want: "2024-01-05", ok: true},
		{name: "slash day first", in: "5/1/2024", want: "2024-01-05", ok: true},
		{name: "dash day first", in: "15-01-2024", want: "2024-01-15", ok: true},
		{name: "buddhist iso", in: "2567-01-15", want: "2024-01-15", ok: true},
		{name: "buddhist day first", in: "15/01/2567", want: "2024-01-15", ok: true},
		{name: "time suffix dropped", in: "2024-01-15 08:30:00", want: "2024-01-15", ok: true},
		{name: "t suffix dropped", in: "2024-01-15T08:30:00", want: "2024-01-15", ok: true},
		{name: "excel serial", in: "45306", want: "2024-01-15", ok: true},
		{name: "excel serial fractional", in: "45306.5", want: "2024-01-15", ok: true},
		{name: "serial below window", in: "19999", ok: false},
		{name: "serial above window", in: "90001", ok: false},
		{name: "feb 31 rejected", in: "31/02/2024", ok: false},
		{name: "month 13 rejected", in: "2024-13-01", ok: false},
		{name: "feb 29 leap ok", in: "29/02/2024", want: "2024-02-29", ok: true},
		{name: "feb 29 non leap rejected", in: "29/02/2023", ok: false},
		{name: "buddhist leap validated after conversion", in: "29/02/2567", want: "2024-02-29", ok: true},
		{name: "garbage", in: "not a date", ok: false},
		{name: "empty", in: "", ok: false},
		{name: "dash placeholder", in: "-", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if !tt.ok {
				assert.False(t, ok, "expected parse failure, got %q", got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	// Canonical output must re-parse to the same calendar date.
	for _, day := range []time.Time{
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC),
	} {
		out := Canonical(day)
		got, ok := Parse(out)
		require.True(t, ok)
		assert.Equal(t, out, got)
	}
}

func TestBuddhistAndGregorianAgree(t *testing.T) {
	b, ok := Parse("2567-01-15")
	require.True(t, ok)
	g, ok := Parse("2024-01-15")
	require.True(t, ok)
	assert.Equal(t, g, b)
}

func TestExcelSerialEpoch(t *testing.T) {
	// 25569 is the Excel serial of the Unix epoch.
	got0, ok := Parse("25569")
	require.True(t, ok)
	assert.Equal(t, "1970-01-01", got0)

	got, ok := Parse("43831")
	require.True(t, ok)
	assert.Equal(t, "2020-01-01", got)
}
