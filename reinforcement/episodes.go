package reinforcement

// TerminalReason says why an episode ended.
type TerminalReason string

const (
	GoalReached TerminalReason = "goal_reached"
	Timeout     TerminalReason = "timeout"
)

// EpisodeRecord summarizes a finished episode.
type EpisodeRecord struct {
	Episode     int            `json:"episode"`
	Steps       int            `json:"steps"`
	TotalReward float64        `json:"totalReward"`
	GoalID      string         `json:"goalId"`
	Reason      TerminalReason `json:"reason"`
}

// EpisodeHistory keeps the most recent records, dropping the oldest past its capacity.
type EpisodeHistory struct {
	capacity int
	records  []EpisodeRecord
}

func NewEpisodeHistory(capacity int) *EpisodeHistory {
	if capacity < 0 {
		capacity = 0
	}
	return &EpisodeHistory{
		capacity: capacity,
		records:  make([]EpisodeRecord, 0, capacity),
	}
}

func (h *EpisodeHistory) Add(rec EpisodeRecord) {
	if h.capacity == 0 {
		return
	}
	if len(h.records) == h.capacity {
		copy(h.records, h.records[1:])
		h.records = h.records[:len(h.records)-1]
	}
	h.records = append(h.records, rec)
}

// Records returns a copy of the history, oldest first.
func (h *EpisodeHistory) Records() []EpisodeRecord {
	return append([]EpisodeRecord(nil), h.records...)
}

func (h *EpisodeHistory) Len() int {
	return len(h.records)
}
