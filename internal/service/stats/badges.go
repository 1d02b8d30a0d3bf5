package stats

// Badge names, in display order.
const (
	BadgeFirstContribution = "First Contribution"
	BadgeContributor10     = "Contributor x10"
	BadgeContributor50     = "Contributor x50"
	BadgeMultilingual      = "Multilingual"
	BadgeThreeDayStreak    = "3-Day Streak"
	BadgeWeeklyWarrior     = "Weekly Warrior"
)

// Totals are the inputs badge rules are evaluated against.
type Totals struct {
	Contributions int
	Languages     int
	WeeklyStreak  int
}

// BadgeDefinition describes one threshold badge.
type BadgeDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	earned func(Totals) bool
}

var catalog = []BadgeDefinition{
	{
		Name:        BadgeFirstContribution,
		Description: "Submitted a first contribution",
		Icon:        "🌱",
		earned:      func(t Totals) bool { return t.Contributions >= 1 },
	},
	{
		Name:        BadgeContributor10,
		Description: "Submitted 10 contributions",
		Icon:        "🔟",
		earned:      func(t Totals) bool { return t.Contributions >= 10 },
	},
	{
		Name:        BadgeContributor50,
		Description: "Submitted 50 contributions",
		Icon:        "🏅",
		earned:      func(t Totals) bool { return t.Contributions >= 50 },
	},
	{
		Name:        BadgeMultilingual,
		Description: "Contributed in at least two languages",
		Icon:        "🗣️",
		earned:      func(t Totals) bool { return t.Languages >= 2 },
	},
	{
		Name:        BadgeThreeDayStreak,
		Description: "Active on 3 days within the last week",
		Icon:        "🔥",
		earned:      func(t Totals) bool { return t.WeeklyStreak >= 3 },
	},
	{
		Name:        BadgeWeeklyWarrior,
		Description: "Active on every day of the last week",
		Icon:        "⚔️",
		earned:      func(t Totals) bool { return t.WeeklyStreak >= 7 },
	},
}

// Catalog returns every badge definition in display order.
func Catalog() []BadgeDefinition {
	out := make([]BadgeDefinition, len(catalog))
	copy(out, catalog)
	return out
}

// EvaluateBadges returns the names of all badges earned for t, lowest milestone first.
// The result is never nil.
func EvaluateBadges(t Totals) []string {
	earned := []string{}
	for _, badge := range catalog {
		if badge.earned(t) {
			earned = append(earned, badge.Name)
		}
	}
	return earned
}
