package stats

// Badge tier thresholds on the overall completion percentage. A percentage
// equal to a threshold earns that tier.
const (
	BadgeLegendThreshold   = 90.0
	BadgeChampionThreshold = 80.0
	BadgeAchieverThreshold = 70.0
	BadgeBuilderThreshold  = 60.0
	BadgeStarterThreshold  = 40.0
)

// BadgeTier names a completion badge.
type BadgeTier string

const (
	BadgeLegend   BadgeTier = "LEGEND"
	BadgeChampion BadgeTier = "CHAMPION"
	BadgeAchiever BadgeTier = "ACHIEVER"
	BadgeBuilder  BadgeTier = "BUILDER"
	BadgeStarter  BadgeTier = "STARTER"
	BadgeBeginner BadgeTier = "BEGINNER"
)

// Badge is the presentation of a tier.
type Badge struct {
	Tier    BadgeTier
	Emoji   string
	Color   string
	Message string
}

// Label returns the emoji and tier name, e.g. "🏆 LEGEND".
func (b Badge) Label() string {
	return b.Emoji + " " + string(b.Tier)
}

var badges = []struct {
	threshold float64
	badge     Badge
}{
	{BadgeLegendThreshold, Badge{BadgeLegend, "🏆", "🟢", "You're absolutely crushing it!"}},
	{BadgeChampionThreshold, Badge{BadgeChampion, "🥇", "🟡", "Outstanding consistency!"}},
	{BadgeAchieverThreshold, Badge{BadgeAchiever, "🥈", "🟠", "Great progress, keep it up!"}},
	{BadgeBuilderThreshold, Badge{BadgeBuilder, "🥉", "🔵", "You're building good habits!"}},
	{BadgeStarterThreshold, Badge{BadgeStarter, "🌱", "🟣", "Good start, aim higher!"}},
}

var beginnerBadge = Badge{BadgeBeginner, "🔰", "⚪", "Every journey starts with a step!"}

// ClassifyBadge returns the highest tier whose threshold pct reaches.
func ClassifyBadge(pct float64) Badge {
	for _, b := range badges {
		if pct >= b.threshold {
			return b.badge
		}
	}
	return beginnerBadge
}

// Streak milestones in days.
const (
	StreakMilestoneBronze = 7
	StreakMilestoneSilver = 14
	StreakMilestoneGold   = 21
	StreakMilestoneMaster = 30
)

// StreakMilestone returns the emoji and encouragement for a streak length.
func StreakMilestone(days int) (emoji, message string) {
	switch {
	case days >= StreakMilestoneMaster:
		return "🏆", "Incredible! You're a habit master!"
	case days >= StreakMilestoneGold:
		return "🥇", "Amazing! You've built a solid habit!"
	case days >= StreakMilestoneSilver:
		return "🥈", "Fantastic! Two weeks strong!"
	case days >= StreakMilestoneBronze:
		return "🥉", "Great job! One week streak!"
	case days == 1:
		return "🔥", "Great start! Keep it up to build a longer streak!"
	case days == 0:
		return "🔥", "Complete all your habits today to start a new streak!"
	default:
		return "🔥", "Keep going strong!"
	}
}
