package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "00:00", want: 0},
		{raw: "09:30", want: 570},
		{raw: "23:59", want: 1439},
		{raw: "24:00", wantErr: true},
		{raw: "09:60", wantErr: true},
		{raw: "9:30", wantErr: true},
		{raw: "09-30", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "ab:cd", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseClock(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestParseRangeRejectsInvertedRange(t *testing.T) {
	_, err := ParseRange("10:00", "09:00")
	assert.Error(t, err)

	_, err = ParseRange("10:00", "10:00")
	assert.Error(t, err)
}

func TestRangeOverlaps(t *testing.T) {
	base := Range{Start: 540, End: 600} // 09:00-10:00

	tests := []struct {
		name  string
		other Range
		want  bool
	}{
		{name: "identical", other: Range{Start: 540, End: 600}, want: true},
		{name: "contained", other: Range{Start: 550, End: 590}, want: true},
		{name: "overlaps start", other: Range{Start: 500, End: 550}, want: true},
		{name: "overlaps end", other: Range{Start: 590, End: 650}, want: true},
		{name: "touching before", other: Range{Start: 480, End: 540}, want: false},
		{name: "touching after", other: Range{Start: 600, End: 660}, want: false},
		{name: "disjoint", other: Range{Start: 700, End: 760}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base))
		})
	}
}
