package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hour(h int) time.Time {
	return time.Date(2030, 1, 1, h, 0, 0, 0, time.UTC)
}

func TestNewCalendar(t *testing.T) {
	tests := []struct {
		name    string
		hours   []HourRecord
		wantErr bool
	}{
		{"empty", nil, true},
		{"zero timestamp", []HourRecord{{Stage: 1, Block: 1}}, true},
		{"single hour", []HourRecord{{Stage: 1, Block: 1, Time: hour(0)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal, err := NewCalendar(tt.hours)
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.hours), cal.Len())
		})
	}
}

func TestCalendar_LookupFloorsToHour(t *testing.T) {
	cal, err := NewCalendar([]HourRecord{
		{Stage: 1, Block: 1, Time: hour(0).Add(20 * time.Minute)},
		{Stage: 1, Block: 2, Time: hour(1)},
	})
	require.NoError(t, err)

	ti, ok := cal.Lookup(hour(0).Add(45 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, TimeIndex{Stage: 1, Block: 1}, ti)

	_, ok = cal.Lookup(hour(5))
	assert.False(t, ok)

	first, last := cal.Window()
	assert.Equal(t, hour(0), first)
	assert.Equal(t, hour(1), last)
	assert.True(t, cal.InWindow(hour(1).Add(59*time.Minute)))
	assert.False(t, cal.InWindow(hour(2)))
}

func TestCalendar_DuplicateLaterWins(t *testing.T) {
	cal, err := NewCalendar([]HourRecord{
		{Stage: 1, Block: 1, Time: hour(0)},
		{Stage: 2, Block: 3, Time: hour(0)},
	})
	require.NoError(t, err)

	ti, ok := cal.Lookup(hour(0))
	require.True(t, ok)
	assert.Equal(t, TimeIndex{Stage: 2, Block: 3}, ti)
	assert.Len(t, cal.HourIndex(), 1)
}

func TestCalendar_KeysBlocksDurations(t *testing.T) {
	cal, err := NewCalendar([]HourRecord{
		{Stage: 2, Block: 1, Time: hour(2)},
		{Stage: 1, Block: 2, Time: hour(1), DurationHours: 0.5},
		{Stage: 1, Block: 1, Time: hour(0)},
		{Stage: 1, Block: 2, Time: hour(3)},
	})
	require.NoError(t, err)

	assert.Equal(t, CalendarKeys{Stages: []int{1, 2}, Blocks: []int{1, 2}}, cal.Keys())
	assert.Equal(t, []TimeIndex{{1, 1}, {1, 2}, {2, 1}}, cal.Blocks())

	durations := cal.BlockDurations()
	assert.Equal(t, 1.5, durations[TimeIndex{1, 2}])
	assert.Equal(t, 1.0, durations[TimeIndex{1, 1}])

	idx := cal.HourIndex()
	assert.Equal(t, TimeIndex{2, 1}, idx[hour(2)])
}

func TestTimeIndex_Less(t *testing.T) {
	assert.True(t, TimeIndex{1, 5}.Less(TimeIndex{2, 1}))
	assert.True(t, TimeIndex{1, 1}.Less(TimeIndex{1, 2}))
	assert.False(t, TimeIndex{1, 2}.Less(TimeIndex{1, 2}))
	assert.Equal(t, "(3,4)", TimeIndex{3, 4}.String())
}
