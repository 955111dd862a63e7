package absence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/absence"
	"github.com/warp/worktime/calendar"
)

func date(s string) calendar.Date {
	return calendar.MustParseDate(s)
}

// =============================================================================
// DURATION PRICING
// =============================================================================

func TestDurationHours_SingleDay(t *testing.T) {
	d := date("10/03/2023")

	h, err := absence.DurationHours(absence.Morning, d, d)
	require.NoError(t, err)
	assert.Equal(t, absence.Hours(4), h)

	h, err = absence.DurationHours(absence.Afternoon, d, d)
	require.NoError(t, err)
	assert.Equal(t, absence.Hours(4), h)

	h, err = absence.DurationHours(absence.FullDay, d, d)
	require.NoError(t, err)
	assert.Equal(t, absence.Hours(8), h)

	_, err = absence.DurationHours(absence.FullDay, d, d.AddDays(1))
	var re *absence.InvalidRangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, absence.ReasonNotSingleDay, re.Reason)
}

func TestDurationHours_MultiDay(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		want       absence.Hours
		reason     string
	}{
		{"two weeks", "06/03/2023", "17/03/2023", 80, ""},
		{"fri to mon", "10/03/2023", "13/03/2023", 16, ""},
		{"mon to fri", "06/03/2023", "10/03/2023", 40, ""},
		{"single day", "06/03/2023", "06/03/2023", 0, absence.ReasonTooFewWeekdays},
		{"weekend only", "11/03/2023", "12/03/2023", 0, absence.ReasonTooFewWeekdays},
		{"fri to sun", "10/03/2023", "12/03/2023", 0, absence.ReasonTooFewWeekdays},
		{"reversed", "10/03/2023", "06/03/2023", 0, absence.ReasonEndBeforeStart},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := absence.DurationHours(absence.MultiDay, date(tc.start), date(tc.end))
			if tc.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.want, h)
				return
			}
			var re *absence.InvalidRangeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tc.reason, re.Reason)
			assert.ErrorIs(t, err, absence.ErrInvalidRange)
		})
	}
}

func TestParseDurationCode(t *testing.T) {
	for in, want := range map[string]absence.DurationCode{
		"morning":   absence.Morning,
		"Afternoon": absence.Afternoon,
		"full day":  absence.FullDay,
		"full_day":  absence.FullDay,
		"multi-day": absence.MultiDay,
	} {
		got, err := absence.ParseDurationCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := absence.ParseDurationCode("fortnight")
	assert.ErrorIs(t, err, calendar.ErrFormat)
}

func TestHalfDayWindow(t *testing.T) {
	s, e := absence.HalfDayWindow(absence.Morning)
	assert.Equal(t, "9:30", s)
	assert.Equal(t, "13:30", e)

	s, e = absence.HalfDayWindow(absence.Afternoon)
	assert.Equal(t, "13:30", s)
	assert.Equal(t, "17:30", e)

	s, e = absence.HalfDayWindow(absence.MultiDay)
	assert.Empty(t, s)
	assert.Empty(t, e)
}

// =============================================================================
// BALANCE AND DATE CHECKS
// =============================================================================

func TestValidateAgainstBalance(t *testing.T) {
	ent := absence.Entitlement{EmployeeID: "E1", Total: 10, Unallocated: 10}

	assert.NoError(t, absence.ValidateAgainstBalance(ent, 8))
	assert.NoError(t, absence.ValidateAgainstBalance(ent, 10))

	err := absence.ValidateAgainstBalance(ent, 16)
	var ib *absence.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, absence.Hours(10), ib.Available)
	assert.Equal(t, absence.Hours(16), ib.Requested)
	assert.Equal(t, absence.BucketUnallocated, ib.Bucket)
}

func TestValidateSelfServiceDate(t *testing.T) {
	today := date("01/03/2023")

	assert.NoError(t, absence.ValidateSelfServiceDate(date("02/03/2023"), date("02/03/2023"), today))

	cases := map[string]string{
		"01/03/2023": absence.ReasonPastDate,
		"28/02/2023": absence.ReasonPastDate,
		"04/01/2024": absence.ReasonOtherYear,
		"04/03/2023": absence.ReasonWeekend,
	}
	for start, reason := range cases {
		err := absence.ValidateSelfServiceDate(date(start), date(start), today)
		var re *absence.InvalidRangeError
		require.ErrorAs(t, err, &re, start)
		assert.Equal(t, reason, re.Reason, start)
	}
}

func TestValidateRecordedDate(t *testing.T) {
	today := date("01/03/2023")

	assert.NoError(t, absence.ValidateRecordedDate(date("20/02/2023"), date("20/02/2023"), today, true), "past dates are allowed")
	assert.NoError(t, absence.ValidateRecordedDate(date("05/01/2024"), date("05/01/2024"), today, false), "unpaid may be next year")
	assert.ErrorIs(t, absence.ValidateRecordedDate(date("05/01/2024"), date("05/01/2024"), today, true), absence.ErrInvalidRange)
	assert.ErrorIs(t, absence.ValidateRecordedDate(date("04/03/2023"), date("04/03/2023"), today, false), absence.ErrInvalidRange)
}

// =============================================================================
// UNIT CONVERSION
// =============================================================================

func TestDaysConversion(t *testing.T) {
	assert.Equal(t, "0.5", absence.DaysString(4))
	assert.Equal(t, "1", absence.DaysString(8))
	assert.Equal(t, "10", absence.DaysString(80))

	for in, want := range map[string]absence.Hours{"0.5": 4, "1": 8, "1.0": 8, "10": 80, "2.5": 20} {
		h, err := absence.ParseDays(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, h, in)
	}

	_, err := absence.ParseDays("0.3")
	assert.Error(t, err, "0.3 days is not a whole number of hours")
	_, err = absence.ParseDays("abc")
	assert.ErrorIs(t, err, calendar.ErrFormat)
}

func TestCodeOf(t *testing.T) {
	_, dateErr := calendar.ParseDate("31/02/2023")
	_, fmtErr := calendar.ParseDate("2023-02-01")

	assert.Equal(t, absence.CodeInvalidDate, absence.CodeOf(dateErr))
	assert.Equal(t, absence.CodeFormat, absence.CodeOf(fmtErr))
	assert.Equal(t, absence.CodeInvalidRange, absence.CodeOf(&absence.InvalidRangeError{}))
	assert.Equal(t, absence.CodeInsufficientBalance, absence.CodeOf(&absence.InsufficientBalanceError{}))
	assert.Equal(t, absence.CodeInvalidTransition, absence.CodeOf(&absence.InvalidTransitionError{}))
	assert.Equal(t, absence.CodeNotFound, absence.CodeOf(absence.ErrRequestNotFound))
	assert.Equal(t, absence.CodeForbidden, absence.CodeOf(absence.ErrForbidden))
	assert.Equal(t, absence.CodeInternal, absence.CodeOf(assert.AnError))
	assert.Equal(t, absence.Code(""), absence.CodeOf(nil))

	assert.True(t, absence.IsClientError(&absence.InsufficientBalanceError{}))
	assert.False(t, absence.IsClientError(assert.AnError))
}
