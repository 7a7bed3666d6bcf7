package agents

// Mission cycles an agent through a fixed list of goals, counting completed trips per goal.
type Mission struct {
	goals []string
	index int
	trips map[string]int
}

// NewMission panics on an empty goal list, which is a programming error.
func NewMission(goals ...string) *Mission {
	if len(goals) == 0 {
		panic("agents: mission without goals")
	}
	return &Mission{
		goals: goals,
		trips: map[string]int{},
	}
}

func (m *Mission) Current() string {
	return m.goals[m.index]
}

// Advance records a trip to the current goal and returns the next one.
func (m *Mission) Advance() string {
	m.trips[m.Current()]++
	m.index = (m.index + 1) % len(m.goals)
	return m.Current()
}

// Trips returns a copy of the trip counts.
func (m *Mission) Trips() map[string]int {
	trips := make(map[string]int, len(m.trips))
	for goal, n := range m.trips {
		trips[goal] = n
	}
	return trips
}
