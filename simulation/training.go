package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"citybrains/agents"
	"citybrains/atomic_float"
	"citybrains/reinforcement"
	. "citybrains/road_graph"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

// TrainingStats aggregates the episodes of all training workers. It may be
// read while training is in progress.
type TrainingStats struct {
	Episodes     atomic.Int64
	GoalsReached atomic.Int64
	Timeouts     atomic.Int64
	TotalReward  *atomic_float.AtomicFloat64
}

func NewTrainingStats() *TrainingStats {
	return &TrainingStats{
		TotalReward: atomic_float.NewAtomicFloat64(0),
	}
}

func (s *TrainingStats) Record(rec reinforcement.EpisodeRecord) {
	s.Episodes.Add(1)
	switch rec.Reason {
	case reinforcement.GoalReached:
		s.GoalsReached.Add(1)
	case reinforcement.Timeout:
		s.Timeouts.Add(1)
	}
	s.TotalReward.Add(rec.TotalReward)
}

// MeanReward is the average total reward per episode.
func (s *TrainingStats) MeanReward() float64 {
	n := s.Episodes.Load()
	if n == 0 {
		return 0
	}
	return s.TotalReward.AtomicRead() / float64(n)
}

func (s *TrainingStats) String() string {
	return fmt.Sprintf("episodes=%d goals=%d timeouts=%d meanReward=%.3f",
		s.Episodes.Load(), s.GoalsReached.Load(), s.Timeouts.Load(), s.MeanReward())
}

func (s *TrainingStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Episodes     int64                       `json:"episodes"`
		GoalsReached int64                       `json:"goalsReached"`
		Timeouts     int64                       `json:"timeouts"`
		TotalReward  *atomic_float.AtomicFloat64 `json:"totalReward"`
		MeanReward   float64                     `json:"meanReward"`
	}{
		Episodes:     s.Episodes.Load(),
		GoalsReached: s.GoalsReached.Load(),
		Timeouts:     s.Timeouts.Load(),
		TotalReward:  s.TotalReward,
		MeanReward:   s.MeanReward(),
	})
}

// ProgressFunc is a callback by which training lends progress details: the
// number of episodes finished so far, across workers. It is called
// synchronously from the collector and should complete quickly.
type ProgressFunc func(context.Context, int)

// TrainingResult holds the stats and the trained brain of every worker.
type TrainingResult struct {
	Stats  *TrainingStats
	Brains []*reinforcement.QLearningBrain
}

// Train runs nworkers independent walkers, each with its own QLearningBrain,
// shuttling between home and shop until every brain has finished the
// configured number of episodes or ctx is done. The workers share only the
// read-only road graph. Episode records from all workers fan in to a single
// collector that keeps the stats and reports progress.
func Train(
	ctx context.Context,
	city *City,
	config *reinforcement.TrainingConfig,
	nworkers int,
	progressFn ProgressFunc,
) (*TrainingResult, error) {
	home, ok := city.Resolve("home")
	if !ok {
		return nil, fmt.Errorf("train: home: %w", ErrUnknownPOI)
	}
	if _, ok := city.Resolve("shop"); !ok {
		return nil, fmt.Errorf("train: shop: %w", ErrUnknownPOI)
	}
	if nworkers < 1 {
		nworkers = 1
	}

	q := config.QLearning()
	if q.CorridorMargin > 0 {
		if box, ok := city.Corridor(q.CorridorMargin, "home", "shop"); ok {
			q.Bounds = &box
		}
	}

	episodes := config.Episodes
	// Every hop takes one update; the guard only matters for a brain that stops moving.
	maxUpdates := -1
	if episodes > 0 {
		maxUpdates = episodes * (q.MaxEpisodeSteps + 1)
	}

	quiet := log.New(io.Discard, "", 0)
	group, groupCtx := errgroup.WithContext(ctx)
	result := &TrainingResult{
		Stats:  NewTrainingStats(),
		Brains: make([]*reinforcement.QLearningBrain, nworkers),
	}

	worker := func(id int) <-chan reinforcement.EpisodeRecord {
		records := make(chan reinforcement.EpisodeRecord)
		cfg := q
		cfg.Seed = q.Seed + int64(id)
		brain := reinforcement.NewQLearningBrain(city.Graph, city, cfg, quiet)
		result.Brains[id] = brain
		brain.OnEpisodeEnd(func(rec reinforcement.EpisodeRecord) {
			select {
			case records <- rec:
			case <-groupCtx.Done():
			}
		})
		walker := agents.NewAgent(
			fmt.Sprintf("trainer-%d", id), agents.Walker, city.Graph, city, brain, home, 1, quiet,
		).WithMission(agents.NewMission("shop", "home"))

		group.Go(func() error {
			defer close(records)
			for updates := 0; maxUpdates < 0 || updates < maxUpdates; updates++ {
				if episodes > 0 && brain.Episode() >= episodes {
					return nil
				}
				select {
				case <-groupCtx.Done():
					return nil
				default:
				}
				walker.Update(1)
			}
			return nil
		})
		return records
	}

	workers := []<-chan reinforcement.EpisodeRecord{}
	for i := 0; i < nworkers; i++ {
		workers = append(workers, worker(i))
	}

	for rec := range channerics.Merge(groupCtx.Done(), workers...) {
		result.Stats.Record(rec)
		if progressFn != nil {
			progressFn(groupCtx, int(result.Stats.Episodes.Load()))
		}
	}

	if err := group.Wait(); err != nil {
		return result, err
	}
	return result, nil
}
