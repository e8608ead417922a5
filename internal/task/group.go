package task

import "slices"

// DefaultGroup is the group new tasks start in.
const DefaultGroup = "work"

// DefaultTabName is the placeholder name of a group that has not been named yet.
const DefaultTabName = "default_name"

// TabItem is a task group as shown in the group tab bar.
type TabItem struct {
	Name           string `yaml:"name" json:"name"`
	SelectedIcon   string `yaml:"selected_icon" json:"selected_icon"`
	UnselectedIcon string `yaml:"unselected_icon" json:"unselected_icon"`
	Slot           int    `yaml:"slot" json:"slot"`
}

// Icon names. Selected variants are filled, unselected ones outlined.
var icons = map[string]string{
	"briefcase":   "▣",
	"briefcase-o": "□",
	"house":       "⌂",
	"house-o":     "⌂",
	"book":        "▤",
	"book-o":      "▭",
	"cart":        "◉",
	"cart-o":      "○",
	"star":        "★",
	"star-o":      "☆",
	"heart":       "♥",
	"heart-o":     "♡",
	"flag":        "⚑",
	"flag-o":      "⚐",
	"dot":         "●",
	"dot-o":       "◌",
}

// IconNames returns every known icon name, sorted.
func IconNames() []string {
	names := make([]string, 0, len(icons))
	for n := range icons {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ValidIcon reports whether name is a known icon.
func ValidIcon(name string) bool {
	_, ok := icons[name]
	return ok
}

// Glyph returns the terminal glyph for an icon name, or the name itself.
func Glyph(name string) string {
	if g, ok := icons[name]; ok {
		return g
	}
	return name
}

// DefaultTabItems returns the built-in groups seeded on init.
func DefaultTabItems() []TabItem {
	return []TabItem{
		{Name: "work", SelectedIcon: "briefcase", UnselectedIcon: "briefcase-o", Slot: 0},
		{Name: "home", SelectedIcon: "house", UnselectedIcon: "house-o", Slot: 1},
		{Name: "study", SelectedIcon: "book", UnselectedIcon: "book-o", Slot: 2},
		{Name: "shopping", SelectedIcon: "cart", UnselectedIcon: "cart-o", Slot: 3},
		{Name: "other", SelectedIcon: "dot", UnselectedIcon: "dot-o", Slot: 4},
	}
}

// NewTabItem returns an unnamed group with the default icons.
func NewTabItem() TabItem {
	return TabItem{Name: DefaultTabName, SelectedIcon: "star", UnselectedIcon: "star-o"}
}
