// Package stats aggregates habit logs and mood entries into the numbers the
// bot reports: daily completion, weekly percentages, streaks, the overall
// completion badge and monthly mood statistics.
//
// The Compute* functions are pure and operate on rows already loaded from the
// store; Service loads those rows through a store.Gateway.
package stats

import (
	"math"
	"sort"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// WeekDays is the length of the weekly window, today included.
const WeekDays = 7

// WeeklyHabitStat is one habit's completion over the weekly window.
type WeeklyHabitStat struct {
	Completed  int     `json:"completed_count"`
	DaysLogged int     `json:"total_days_logged"`
	Percentage float64 `json:"percentage"`
}

// Overall is the completion rate across the user's whole logging history.
type Overall struct {
	TotalLogs     int     `json:"total_logs"`
	CompletedLogs int     `json:"completed_logs"`
	Percentage    float64 `json:"percentage"`
}

// Missed returns the number of logged but not completed habit checks.
func (o Overall) Missed() int {
	return o.TotalLogs - o.CompletedLogs
}

// Badge classifies the exact completion ratio. Percentage is rounded for
// display and can cross a tier threshold, so it is not used here.
func (o Overall) Badge() Badge {
	return ClassifyBadge(ratio(o.CompletedLogs, o.TotalLogs))
}

// WeekStart returns the first date of the weekly window ending on today.
func WeekStart(today string) (string, error) {
	return models.AddDays(today, -(WeekDays - 1))
}

// ComputeWeeklyStats groups logs dated within the 7 days ending today by habit
// name. Only days with a log row count toward DaysLogged, so a habit created
// mid-week is not penalized for the days before it existed.
func ComputeWeeklyStats(logs []models.HabitLogEntry, today string) (map[string]WeeklyHabitStat, error) {
	from, err := WeekStart(today)
	if err != nil {
		return nil, err
	}
	out := make(map[string]WeeklyHabitStat)
	for _, l := range logs {
		if l.Date < from || l.Date > today {
			continue
		}
		st := out[l.HabitName]
		st.DaysLogged++
		if l.Completed {
			st.Completed++
		}
		out[l.HabitName] = st
	}
	for name, st := range out {
		st.Percentage = percentage(st.Completed, st.DaysLogged)
		out[name] = st
	}
	return out, nil
}

// ComputeStreak counts consecutive days, walking backward from today, on which
// the number of completed habit logs equals habitCount. Today counts too, so a
// user who has not finished today's habits has a streak of 0. A user without
// habits always has a streak of 0.
func ComputeStreak(habitCount int, logs []models.HabitLogEntry, today string) (int, error) {
	if habitCount <= 0 {
		return 0, nil
	}
	if err := models.ValidateDate(today); err != nil {
		return 0, err
	}
	completed := make(map[string]int)
	for _, l := range logs {
		if l.Completed {
			completed[l.Date]++
		}
	}

	streak := 0
	day := today
	for completed[day] >= habitCount {
		streak++
		prev, err := models.AddDays(day, -1)
		if err != nil {
			return streak, err
		}
		day = prev
	}
	return streak, nil
}

// ComputeOverall summarizes every log row.
func ComputeOverall(logs []models.HabitLogEntry) Overall {
	o := Overall{TotalLogs: len(logs)}
	for _, l := range logs {
		if l.Completed {
			o.CompletedLogs++
		}
	}
	o.Percentage = percentage(o.CompletedLogs, o.TotalLogs)
	return o
}

// SortedHabitNames returns the keys of a weekly report in display order.
func SortedHabitNames(weekly map[string]WeeklyHabitStat) []string {
	names := make([]string, 0, len(weekly))
	for name := range weekly {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ratio returns part/whole*100, or 0 for an empty whole.
func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// percentage returns ratio rounded to two decimals.
func percentage(part, whole int) float64 {
	return math.Round(ratio(part, whole)*100) / 100
}
