// simulation steps a city's agents on a fixed tick and projects their state
// into snapshots for observers.
package simulation

import (
	"context"
	"fmt"
	"log"
	"time"

	"citybrains/agents"
	"citybrains/brains"
	"citybrains/reinforcement"
	. "citybrains/road_graph"

	channerics "github.com/niceyeti/channerics/channels"
)

// Simulation owns the agents of a city and the tick counter that sequences them.
// It is stepped from a single goroutine.
type Simulation struct {
	city    *City
	agents  []*agents.Agent
	tick    uint64
	elapsed float64
}

func New(city *City) *Simulation {
	return &Simulation{city: city}
}

func (s *Simulation) City() *City {
	return s.city
}

func (s *Simulation) AddAgent(a *agents.Agent) {
	s.agents = append(s.agents, a)
}

func (s *Simulation) Agents() []*agents.Agent {
	return s.agents
}

// Step advances every agent by dt simulated seconds, in insertion order.
func (s *Simulation) Step(dt float64) {
	s.tick++
	s.elapsed += dt
	for _, a := range s.agents {
		a.Update(dt)
	}
}

func (s *Simulation) Tick() uint64 {
	return s.tick
}

// Snapshot is a read-only projection of the simulation at a tick.
type Snapshot struct {
	Tick    uint64              `json:"tick"`
	Elapsed float64             `json:"elapsed"`
	Agents  []agents.AgentState `json:"agents"`

	// Greedy policy of the first learning agent, toward its current goal.
	PolicyAgent string                      `json:"policyAgent,omitempty"`
	PolicyGoal  string                      `json:"policyGoal,omitempty"`
	Policy      []reinforcement.PolicyEntry `json:"policy,omitempty"`
}

func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:    s.tick,
		Elapsed: s.elapsed,
		Agents:  make([]agents.AgentState, 0, len(s.agents)),
	}
	for _, a := range s.agents {
		snap.Agents = append(snap.Agents, a.State())
		if snap.Policy != nil {
			continue
		}
		if q, ok := a.Brain().(*reinforcement.QLearningBrain); ok {
			snap.PolicyAgent = a.ID
			snap.PolicyGoal = q.GoalID()
			snap.Policy = q.GetPolicySnapshot(q.GoalID())
		}
	}
	return snap
}

// Run steps the simulation every tick of wall time, advancing it by tick*speed
// simulated seconds, and publishes a snapshot after every step. It returns
// when ctx is done.
func (s *Simulation) Run(
	ctx context.Context,
	tick time.Duration,
	speed float64,
	publish func(Snapshot),
) error {
	dt := tick.Seconds() * speed
	for range channerics.NewTicker(ctx.Done(), tick) {
		s.Step(dt)
		publish(s.Snapshot())
	}
	return ctx.Err()
}

// SceneConfig describes the default cast of a city.
type SceneConfig struct {
	QLearning reinforcement.QLearningConfig
	Seed      int64
	Logger    *log.Logger
}

// NewScene populates a city with a learning walker and a planning walker
// shuttling between home and shop, and a car wandering the streets.
func NewScene(city *City, cfg SceneConfig) (*Simulation, error) {
	home, ok := city.Resolve("home")
	if !ok {
		return nil, fmt.Errorf("scene: home: %w", ErrUnknownPOI)
	}
	shop, ok := city.Resolve("shop")
	if !ok {
		return nil, fmt.Errorf("scene: shop: %w", ErrUnknownPOI)
	}

	q := cfg.QLearning
	if q.CorridorMargin > 0 {
		if box, ok := city.Corridor(q.CorridorMargin, "home", "shop"); ok {
			q.Bounds = &box
		}
	}

	sim := New(city)
	sim.AddAgent(agents.NewAgent(
		"walker-q", agents.Walker, city.Graph, city,
		reinforcement.NewQLearningBrain(city.Graph, city, q, cfg.Logger),
		home, agents.WalkerSpeed, cfg.Logger,
	).WithMission(agents.NewMission("shop", "home")))

	sim.AddAgent(agents.NewAgent(
		"walker-bfs", agents.Walker, city.Graph, city,
		brains.NewShortestPathBrain(city.Graph, city, cfg.Logger),
		shop, agents.WalkerSpeed, cfg.Logger,
	).WithMission(agents.NewMission("home", "shop")))

	sim.AddAgent(agents.NewAgent(
		"car-1", agents.Car, city.Graph, city,
		brains.NewRandomWalkBrain(city.Graph, cfg.Seed),
		home, agents.CarSpeed, cfg.Logger,
	))

	return sim, nil
}
