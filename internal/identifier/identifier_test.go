package identifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiseaseCode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "valid", in: "A90", want: "A90"},
		{name: "lowercase normalized", in: "a90", want: "A90"},
		{name: "padded", in: "  d01 ", want: "D01"},
		{name: "too long", in: "A901", wantErr: true},
		{name: "digits first", in: "90A", wantErr: true},
		{name: "one digit", in: "A9", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "thai digits rejected", in: "A๙๐", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiseaseCode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDiseaseCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "valid", in: "a90_cases", want: "a90_cases"},
		{name: "upper normalized", in: "A90_CASES", want: "a90_cases"},
		{name: "bare prefix", in: "a90_", want: "a90_"},
		{name: "schema separator", in: "public.a90_cases", wantErr: true},
		{name: "missing prefix", in: "cases", wantErr: true},
		{name: "bad charset", in: "a90_cases;drop", wantErr: true},
		{name: "quote injection", in: `a90_"cases"`, wantErr: true},
		{name: "too long", in: "a90_" + strings.Repeat("x", MaxLength), wantErr: true},
		{name: "empty", in: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TableName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTableName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTablePair(t *testing.T) {
	name, code, err := TablePair(" A90_Cases ", "a90")
	require.NoError(t, err)
	assert.Equal(t, "a90_cases", name)
	assert.Equal(t, "A90", code)

	_, _, err = TablePair("a91_cases", "A90")
	assert.ErrorIs(t, err, ErrPrefixMismatch)
	// The error names the expected prefix so callers can self-correct.
	assert.Contains(t, err.Error(), `"a90_"`)

	_, _, err = TablePair("a90_cases", "bad")
	assert.ErrorIs(t, err, ErrInvalidDiseaseCode)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a90_cases", Truncate("a90_cases"))

	long := "a90_" + strings.Repeat("y", 80)
	got := Truncate(long)
	assert.Len(t, got, MaxLength)
	assert.Equal(t, long[:MaxLength], got)
}
