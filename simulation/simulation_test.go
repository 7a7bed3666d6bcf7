package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"citybrains/reinforcement"
	. "citybrains/road_graph"

	. "github.com/smartystreets/goconvey/convey"
)

var quiet = log.New(io.Discard, "", 0)

func debugScene() *Simulation {
	city, err := Convert(DebugLayout)
	So(err, ShouldBeNil)
	sim, err := NewScene(city, SceneConfig{
		QLearning: reinforcement.DefaultQLearningConfig(),
		Seed:      5,
		Logger:    quiet,
	})
	So(err, ShouldBeNil)
	return sim
}

func TestSimulation(t *testing.T) {
	Convey("Given the default scene on the debug city", t, func() {
		sim := debugScene()
		So(len(sim.Agents()), ShouldEqual, 3)

		Convey("Stepping advances the owned tick counter", func() {
			for i := 0; i < 10; i++ {
				sim.Step(0.1)
			}
			So(sim.Tick(), ShouldEqual, 10)

			Convey("Another simulation has its own counter", func() {
				other := debugScene()
				So(other.Tick(), ShouldEqual, 0)
			})
		})

		Convey("Snapshots carry every agent and the learning agent's policy", func() {
			for i := 0; i < 200; i++ {
				sim.Step(0.1)
			}
			snap := sim.Snapshot()
			So(snap.Tick, ShouldEqual, 200)
			So(snap.Elapsed, ShouldAlmostEqual, 20.0, 1e-6)
			So(len(snap.Agents), ShouldEqual, 3)
			So(snap.PolicyAgent, ShouldEqual, "walker-q")
			So([]string{"shop", "home"}, ShouldContain, snap.PolicyGoal)
			So(snap.Agents[0].Brain.Kind, ShouldEqual, "q_learning")
			So(snap.Agents[1].Brain.Kind, ShouldEqual, "shortest_path")
			So(snap.Agents[2].Brain.Kind, ShouldEqual, "random_walk")
			So(snap.Agents[1].Trips["home"], ShouldBeGreaterThanOrEqualTo, 1)

			data, err := json.Marshal(snap)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"kind":"q_learning"`)
		})
	})

	Convey("Given a city without a shop", t, func() {
		city, err := Convert([]string{"H##", "#.#", "###"})
		So(err, ShouldBeNil)
		_, err = NewScene(city, SceneConfig{QLearning: reinforcement.DefaultQLearningConfig(), Logger: quiet})
		So(errors.Is(err, ErrUnknownPOI), ShouldBeTrue)
	})
}

func TestRun(t *testing.T) {
	Convey("When the simulation runs until its context expires", t, func() {
		sim := debugScene()
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		published := 0
		var last Snapshot
		err := sim.Run(ctx, 5*time.Millisecond, 10, func(snap Snapshot) {
			published++
			last = snap
		})

		So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		So(published, ShouldBeGreaterThan, 0)
		So(last.Tick, ShouldEqual, uint64(published))
		So(sim.Tick(), ShouldEqual, uint64(published))
	})
}

func TestTrain(t *testing.T) {
	Convey("Given an episode budget and three workers", t, func() {
		city, err := Convert(DebugLayout)
		So(err, ShouldBeNil)
		cfg := &reinforcement.TrainingConfig{
			Episodes: 20,
			HyperParams: []reinforcement.HyperParameter{
				{Key: "maxEpisodeSteps", Val: 30},
			},
		}

		progress := []int{}
		result, err := Train(context.Background(), city, cfg, 3, func(ctx context.Context, n int) {
			progress = append(progress, n)
		})
		So(err, ShouldBeNil)

		Convey("Every worker finishes its budget and every episode is counted once", func() {
			So(len(result.Brains), ShouldEqual, 3)
			for _, brain := range result.Brains {
				So(brain.Episode(), ShouldEqual, 20)
			}
			So(result.Stats.Episodes.Load(), ShouldEqual, 60)
			So(result.Stats.GoalsReached.Load()+result.Stats.Timeouts.Load(), ShouldEqual, 60)
			So(len(progress), ShouldEqual, 60)
			So(progress[len(progress)-1], ShouldEqual, 60)
		})

		Convey("The stats encode to json", func() {
			data, err := json.Marshal(result.Stats)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"episodes":60`)
			So(string(data), ShouldContainSubstring, `"totalReward"`)
		})
	})

	Convey("Given a cancelled context", t, func() {
		city, err := Convert(DebugLayout)
		So(err, ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Training stops without error", func() {
			result, err := Train(ctx, city, &reinforcement.TrainingConfig{}, 2, nil)
			So(err, ShouldBeNil)
			So(result.Stats.Episodes.Load(), ShouldBeLessThanOrEqualTo, 0)
		})
	})
}
