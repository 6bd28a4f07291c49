// Package scoring turns the static candidate pool into a ranking for a
// given moment of the simulated day.
package scoring

// Phase is a named slice of the day with its score multiplier.
type Phase struct {
	Name       string
	From       int // first hour, inclusive
	To         int // last hour, inclusive
	Multiplier float64
}

func (p Phase) Contains(hour int) bool {
	return hour >= p.From && hour <= p.To
}

// Schedule resolves an hour to a phase. Phases are checked in order and
// the first match wins; hours no phase covers fall to Fallback.
type Schedule struct {
	Phases   []Phase
	Fallback Phase
}

// DefaultSchedule is the weekday schedule. Afternoon precedes evening, so
// hour 17 is afternoon.
func DefaultSchedule() Schedule {
	return Schedule{
		Phases: []Phase{
			{Name: "morning", From: 7, To: 9, Multiplier: 1.5},
			{Name: "lunch", From: 11, To: 13, Multiplier: 2.0},
			{Name: "afternoon", From: 14, To: 17, Multiplier: 1.2},
			{Name: "evening", From: 17, To: 19, Multiplier: 1.8},
		},
		Fallback: Phase{Name: "night", From: 0, To: 23, Multiplier: 0.5},
	}
}

func (s Schedule) At(hour int) Phase {
	for _, p := range s.Phases {
		if p.Contains(hour) {
			return p
		}
	}
	return s.Fallback
}
