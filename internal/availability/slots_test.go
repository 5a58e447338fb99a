package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessSlots(t *testing.T) {
	slots := BusinessSlots()
	require.Len(t, slots, SlotsPerDay)
	assert.Equal(t, 16, SlotsPerDay)
	assert.Equal(t, Slot{Hour: 9, Minute: 0}, slots[0])
	assert.Equal(t, Slot{Hour: 16, Minute: 30}, slots[len(slots)-1])
}

func TestSlotFormatting(t *testing.T) {
	assert.Equal(t, "09:00", Slot{Hour: 9}.String())
	assert.Equal(t, "09h", Slot{Hour: 9}.Label())
	assert.Equal(t, "14h30", Slot{Hour: 14, Minute: 30}.Label())
	r := SlotRange{Start: Slot{Hour: 9}, End: Slot{Hour: 10}}
	assert.Equal(t, "09:00–10:00", r.String())
	assert.Equal(t, "09h à 10h", r.Label())
}

func TestMergeIntoRanges(t *testing.T) {
	tests := []struct {
		name string
		free []Slot
		want []string
	}{
		{"empty", nil, nil},
		{"single slot", []Slot{{Hour: 9, Minute: 30}}, []string{"09:30–10:00"}},
		{
			name: "unsorted with gap",
			free: []Slot{{Hour: 11}, {Hour: 9}, {Hour: 9, Minute: 30}, {Hour: 11, Minute: 30}},
			want: []string{"09:00–10:00", "11:00–12:00"},
		},
		{
			name: "duplicates collapse",
			free: []Slot{{Hour: 9}, {Hour: 9}, {Hour: 9, Minute: 30}},
			want: []string{"09:00–10:00"},
		},
		{"full day", BusinessSlots(), []string{"09:00–17:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges := MergeIntoRanges(tt.free)
			var got []string
			for _, r := range ranges {
				got = append(got, r.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeIntoRangesIdempotentAndNonTouching(t *testing.T) {
	free := []Slot{{Hour: 9}, {Hour: 10}, {Hour: 10, Minute: 30}, {Hour: 13}, {Hour: 15, Minute: 30}, {Hour: 16}, {Hour: 16, Minute: 30}}
	first := MergeIntoRanges(free)

	var expanded []Slot
	for _, r := range first {
		expanded = append(expanded, r.Slots()...)
	}
	assert.Equal(t, first, MergeIntoRanges(expanded))

	for i := 1; i < len(first); i++ {
		prevEnd := first[i-1].End.minutes()
		start := first[i].Start.minutes()
		assert.Greater(t, start, prevEnd, "ranges %v and %v touch", first[i-1], first[i])
	}
}

func TestCheckBookable(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         error
	}{
		{9, 0, nil},
		{16, 30, nil},
		{12, 30, nil},
		{8, 30, ErrOutsideHours},
		{17, 0, ErrOutsideHours},
		{16, 45, ErrOutsideHours},
		{18, 0, ErrOutsideHours},
		{10, 15, ErrMisaligned},
		{9, 5, ErrMisaligned},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckBookable(tt.hour, tt.minute), "%02d:%02d", tt.hour, tt.minute)
	}
}
