package calendar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/calendar"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseDate_Valid(t *testing.T) {
	d, err := calendar.ParseDate("01/03/2023")
	require.NoError(t, err)
	assert.Equal(t, 2023, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 1, d.Day())
	assert.Equal(t, "01/03/2023", d.String())

	d, err = calendar.ParseDate("1/3/2023")
	require.NoError(t, err)
	assert.Equal(t, "01/03/2023", d.String(), "single-digit fields are accepted and normalized")
}

func TestParseDate_FormatErrors(t *testing.T) {
	for _, in := range []string{"", "01-03-2023", "01/03", "01/03/2023/1", "aa/03/2023", "01/03/23", "+1/03/2023", "01/ 3/2023"} {
		_, err := calendar.ParseDate(in)
		var fe *calendar.FormatError
		assert.ErrorAs(t, err, &fe, "input %q", in)
		assert.ErrorIs(t, err, calendar.ErrFormat)
	}
}

func TestParseDate_InvalidDates(t *testing.T) {
	for _, in := range []string{"31/02/2023", "29/02/2023", "00/01/2023", "15/13/2023"} {
		_, err := calendar.ParseDate(in)
		var ie *calendar.InvalidDateError
		assert.ErrorAs(t, err, &ie, "input %q", in)
	}

	_, err := calendar.ParseDate("29/02/2024")
	assert.NoError(t, err, "leap day exists in 2024")
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := calendar.ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, "09:30:00", tod.String())
	assert.Equal(t, "09:30", tod.Short())

	tod, err = calendar.ParseTimeOfDay("17:05:09")
	require.NoError(t, err)
	assert.Equal(t, calendar.TimeOfDay{Hour: 17, Minute: 5, Second: 9}, tod)

	_, err = calendar.ParseTimeOfDay("9.30")
	assert.ErrorIs(t, err, calendar.ErrFormat)

	_, err = calendar.ParseTimeOfDay("25:00")
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)

	assert.True(t, calendar.TimeOfDay{Hour: 9, Minute: 30}.Before(tod))
	assert.False(t, tod.Before(tod))
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := calendar.MustParseDate("10/04/2023")
	b, err := json.Marshal(map[string]calendar.Date{"d": d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"10/04/2023"}`, string(b))

	var out map[string]calendar.Date
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, out["d"].Equal(d))
}

// =============================================================================
// WEEKDAY COUNTING
// =============================================================================

func TestWeekdayCount(t *testing.T) {
	cases := []struct {
		name     string
		from, to string
		want     int
	}{
		{"single weekday", "06/03/2023", "06/03/2023", 1},
		{"single saturday", "04/03/2023", "04/03/2023", 0},
		{"mon to fri", "06/03/2023", "10/03/2023", 5},
		{"full week", "06/03/2023", "12/03/2023", 5},
		{"two weeks", "06/03/2023", "17/03/2023", 10},
		{"fri to mon", "10/03/2023", "13/03/2023", 2},
		{"weekend only", "11/03/2023", "12/03/2023", 0},
		{"reversed", "10/03/2023", "06/03/2023", 0},
		{"month boundary", "27/02/2023", "03/03/2023", 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calendar.WeekdayCount(calendar.MustParseDate(tc.from), calendar.MustParseDate(tc.to))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWeekdayCount_MatchesEnumeration(t *testing.T) {
	start := calendar.MustParseDate("01/01/2023")
	for span := 0; span < 60; span++ {
		for offset := 0; offset < 7; offset++ {
			from := start.AddDays(offset)
			to := from.AddDays(span)

			want := 0
			for d := from; !d.After(to); d = d.AddDays(1) {
				if !d.IsWeekend() {
					want++
				}
			}
			assert.Equal(t, want, calendar.WeekdayCount(from, to), "%s..%s", from, to)
		}
	}
}

// =============================================================================
// WEEK RANGES
// =============================================================================

func TestWeekRange(t *testing.T) {
	// Wednesday 08/03/2023
	wed := calendar.MustParseDate("08/03/2023")

	week := calendar.WeekRange(wed, calendar.Weekdays)
	require.Len(t, week, 5)
	assert.Equal(t, "06/03/2023", week[0].String())
	assert.Equal(t, "10/03/2023", week[4].String())

	full := calendar.WeekRange(wed, calendar.FullWeek)
	require.Len(t, full, 7)
	assert.Equal(t, "12/03/2023", full[6].String())

	// A Sunday belongs to the week that started the previous Monday.
	sun := calendar.MustParseDate("12/03/2023")
	assert.Equal(t, "06/03/2023", calendar.WeekRange(sun, calendar.FullWeek)[0].String())
}

func TestClocks(t *testing.T) {
	fixed := calendar.FixedAt(calendar.MustParseDate("01/03/2023"))
	assert.Equal(t, "01/03/2023", calendar.Today(fixed).String())

	utc, err := calendar.NewSystemClock("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, utc.Now().Location())

	_, err = calendar.NewSystemClock("Not/AZone")
	assert.Error(t, err)
}
