package shift

import "fmt"

// Window is a standard shift window in minutes after midnight. End is
// exclusive and may exceed 24*60 for shifts that close after midnight.
type Window struct {
	Start int
	End   int
}

// Minutes returns the window length.
func (w Window) Minutes() int { return w.End - w.Start }

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", Clock(w.Start), Clock(w.End))
}

// Clock formats minutes after midnight as HH:MM.
func Clock(m int) string {
	return fmt.Sprintf("%02d:%02d", (m/60)%24, m%60)
}

// Default standard windows.
var (
	DefaultAM = Window{Start: 11 * 60, End: 15 * 60}
	DefaultPM = Window{Start: 16 * 60, End: 22 * 60}
)

// Schedule holds the standard window of each of the fourteen shifts.
type Schedule map[Code]Window

// DefaultSchedule returns a schedule with [DefaultAM] and [DefaultPM] for
// every day.
func DefaultSchedule() Schedule {
	s := make(Schedule, 14)
	for _, c := range Codes() {
		if c.Period() == AM {
			s[c] = DefaultAM
		} else {
			s[c] = DefaultPM
		}
	}
	return s
}

// Window returns the standard window for c, falling back to the default
// window of its period.
func (s Schedule) Window(c Code) Window {
	if w, ok := s[c]; ok {
		return w
	}
	if c.Period() == AM {
		return DefaultAM
	}
	return DefaultPM
}

// Period returns the AM/PM half of c.
func (c Code) Period() Period {
	if len(c) >= 2 && c[len(c)-2:] == "AM" {
		return AM
	}
	return PM
}
