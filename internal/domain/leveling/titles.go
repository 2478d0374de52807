package leveling

// titleThreshold maps a minimum level to the title it grants.
type titleThreshold struct {
	level int64
	title string
}

// Ordered descending so TitleFor can take the first threshold at or below
// the level. Members below the lowest threshold fall back to fallbackTitle.
var titleTable = []titleThreshold{ //nolint:gochecknoglobals // static lookup table
	{60, "God of the Seas"},
	{50, "Legendary Pirate"},
	{40, "Mirage Hunter"},
	{30, "Sea Beast Slayer"},
	{25, "Bounty Chaser"},
	{20, "Awakened Grinder"},
	{15, "Raid Participant"},
	{10, "Fruit Hunter"},
	{5, "Sea Explorer"},
	{1, "Newbie Adventurer"},
}

const fallbackTitle = "Adventurer"

// TitleFor resolves the title for the highest threshold at or below level.
func TitleFor(level int64) string {
	for _, t := range titleTable {
		if level >= t.level {
			return t.title
		}
	}
	return fallbackTitle
}
