package roster

// Changes describes what changed between two roster snapshots.
type Changes struct {
	Added   []string
	Removed []string

	// SupportChanged lists employees on both rosters whose
	// support-eligibility flipped.
	SupportChanged []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.SupportChanged) == 0
}

// Diff compares the canonical names of two snapshots. Results are sorted.
// A nil snapshot counts as empty.
func Diff(old, new *Roster) Changes {
	if old == nil {
		old = &Roster{}
	}
	if new == nil {
		new = &Roster{}
	}
	var c Changes
	for _, name := range new.names {
		if !old.IsCanonical(name) {
			c.Added = append(c.Added, name)
		} else if old.IsSupportEligible(name) != new.IsSupportEligible(name) {
			c.SupportChanged = append(c.SupportChanged, name)
		}
	}
	for _, name := range old.names {
		if !new.IsCanonical(name) {
			c.Removed = append(c.Removed, name)
		}
	}
	return c
}
