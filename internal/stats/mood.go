package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// MoodEmojis indexes mood scores 1..5 at positions 0..4.
var MoodEmojis = [...]string{"😞", "😕", "😐", "😊", "😄"}

// MoodLabels indexes mood scores 1..5 at positions 0..4.
var MoodLabels = [...]string{"Very Bad", "Bad", "Okay", "Good", "Excellent"}

// MoodEmoji returns the emoji for a score, or an empty string when out of range.
func MoodEmoji(score int) string {
	if score < models.MinMoodScore || score > models.MaxMoodScore {
		return ""
	}
	return MoodEmojis[score-1]
}

// MoodPoint is one point of the monthly mood series.
type MoodPoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// MoodSummary is the mood report for one calendar month.
type MoodSummary struct {
	Year    int         `json:"year"`
	Month   time.Month  `json:"month"`
	Count   int         `json:"count"`
	Average float64     `json:"average"`
	Highest int         `json:"highest"`
	Lowest  int         `json:"lowest"`
	Series  []MoodPoint `json:"series"`
}

// Title returns the month caption, e.g. "March 2024".
func (m MoodSummary) Title() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// MonthRange returns the first and last ISO dates of a month.
func MonthRange(year int, month time.Month) (from, to string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(models.DateLayout), last.Format(models.DateLayout)
}

// ComputeMoodSummary summarizes entries ordered by date. Averages are rounded
// to one decimal.
func ComputeMoodSummary(year int, month time.Month, entries []models.MoodEntry) MoodSummary {
	s := MoodSummary{Year: year, Month: month, Count: len(entries)}
	if len(entries) == 0 {
		return s
	}
	s.Lowest = models.MaxMoodScore + 1
	sum := 0
	for _, e := range entries {
		sum += e.Score
		if e.Score > s.Highest {
			s.Highest = e.Score
		}
		if e.Score < s.Lowest {
			s.Lowest = e.Score
		}
		s.Series = append(s.Series, MoodPoint{Date: e.Date, Score: e.Score})
	}
	s.Average = math.Round(float64(sum)/float64(len(entries))*10) / 10
	return s
}
