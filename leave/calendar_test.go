package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

func TestWorkingDays_ExcludesWeekends(t *testing.T) {
	// Mon Jun 16 - Sun Jun 22, 2025: five weekdays
	got := leave.WorkingDays(date(2025, time.June, 16), date(2025, time.June, 22), leave.NoHolidays{})
	assert.Equal(t, "5", got.String())
}

func TestWorkingDays_ExcludesHolidays(t *testing.T) {
	// GIVEN: A holiday on the Wednesday and a recurring one on Jan 1
	// WHEN: Counting working days across both
	// THEN: Holidays are excluded regardless of the year they were entered for

	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.SaveHoliday(ctx, leave.Holiday{
		ID: "hol-1", Date: date(2025, time.June, 18), Name: "Founders Day",
	}))
	require.NoError(t, store.SaveHoliday(ctx, leave.Holiday{
		ID: "hol-2", Date: date(2020, time.January, 1), Name: "New Year", Recurring: true,
	}))

	got := leave.WorkingDays(date(2025, time.June, 16), date(2025, time.June, 20), store)
	assert.Equal(t, "4", got.String())

	// Jan 1, 2025 is a Wednesday; the recurring holiday removes it.
	got = leave.WorkingDays(date(2024, time.December, 30), date(2025, time.January, 3), store)
	assert.Equal(t, "4", got.String())
}

func TestWorkingDays_SingleDay(t *testing.T) {
	assert.Equal(t, "1", leave.WorkingDays(date(2025, time.June, 16), date(2025, time.June, 16), leave.NoHolidays{}).String())
	assert.Equal(t, "0", leave.WorkingDays(date(2025, time.June, 14), date(2025, time.June, 14), leave.NoHolidays{}).String())
}

func TestCalendarDays_CountsSpanInclusive(t *testing.T) {
	assert.Equal(t, 1, leave.CalendarDays(date(2025, time.June, 16), date(2025, time.June, 16)))
	assert.Equal(t, 19, leave.CalendarDays(date(2025, time.June, 16), date(2025, time.July, 4)))
}

func TestDay_TruncatesToMidnightUTC(t *testing.T) {
	in := time.Date(2025, time.June, 16, 17, 45, 12, 999, time.FixedZone("X", 3600))
	got := leave.Day(in)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, 16, got.Day())
}
