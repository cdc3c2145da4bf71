package mstyle

// Style is a shared global tag node identified by its natural key Name.
// Entities attach Styles through connect-or-create edges; removing a Style
// from an entity retracts the edge only, the node itself is shared.
type Style struct {
	Name string
}

// Names projects the natural keys of a style set, preserving order.
func Names(styles []Style) []string {
	if len(styles) == 0 {
		return nil
	}
	names := make([]string, 0, len(styles))
	for _, s := range styles {
		names = append(names, s.Name)
	}
	return names
}

// SameSet reports whether two style sets contain the same names, ignoring
// order.
func SameSet(a, b []Style) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s.Name]++
	}
	for _, s := range b {
		seen[s.Name]--
		if seen[s.Name] < 0 {
			return false
		}
	}
	return true
}
