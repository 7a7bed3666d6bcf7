package reinforcement

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	. "citybrains/road_graph"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the envelope of every config file: a kind selector and the
// kind-specific definition, decoded in a second pass.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig holds the learning parameters kept outside of code: the
// hyperparameters as key-val pairs, an algorithm selector, a training
// deadline and an episode budget for headless training.
// Viper lowercases keys, hence the yaml tags.
type TrainingConfig struct {
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `mapstructure:"hyperParams" yaml:"hyperparams"`
	// Algorithm is an alg selector.
	Algorithm map[string]string `mapstructure:"algorithm" yaml:"algorithm"`
	// TrainingDeadline is a fixed deadline or duration describing when to terminate training.
	TrainingDeadline map[string]string `mapstructure:"trainingDeadline" yaml:"trainingdeadline"`
	// Episodes is the number of episodes each training worker runs. Zero means until the deadline.
	Episodes int `mapstructure:"episodes" yaml:"episodes"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

// GetHyperParamOrDefault returns the value of param, matched case-insensitively, or defaultVal.
func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if strings.EqualFold(kvp.Key, param) {
			return kvp.Val
		}
	}
	return defaultVal
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("training deadline: %w", err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a training config. The file is read through viper into the
// outer envelope, and the inner definition is re-encoded and decoded with yaml.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if outerConfig.Kind != "" && outerConfig.Kind != TrainingConfigKind {
		return nil, fmt.Errorf("config %s: unexpected kind %q", path, outerConfig.Kind)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := &TrainingConfig{}
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, fmt.Errorf("decode training def in %s: %w", path, err)
	}

	return innerConfig, nil
}

// TrainingConfigKind is the kind of a training config file.
const TrainingConfigKind = "training"

// QLearningConfig is the typed form of the Q-learning hyperparameters.
type QLearningConfig struct {
	// Alpha is the learning rate.
	Alpha float64
	// Gamma discounts the value of the successor state.
	Gamma float64
	// Epsilon is the initial exploration probability, decayed multiplicatively
	// by EpsilonDecay at the end of every episode, down to EpsilonMin.
	Epsilon      float64
	EpsilonMin   float64
	EpsilonDecay float64
	// An episode times out after this many steps.
	MaxEpisodeSteps int
	// Number of episode records kept for reporting.
	MaxEpisodeStats int

	GoalReward    float64
	StepCost      float64
	ShapingWeight float64

	// CorridorMargin, when positive, asks the owner of the brain to confine
	// exploration to the box around the goals grown by this many cells.
	CorridorMargin int
	// Bounds confines the actions of the brain to cells inside the box. Nil
	// means the whole graph.
	Bounds *Box

	Seed int64
}

// DefaultQLearningConfig returns the defaults used by the simulation.
func DefaultQLearningConfig() QLearningConfig {
	return QLearningConfig{
		Alpha:           0.4,
		Gamma:           0.9,
		Epsilon:         0.3,
		EpsilonMin:      0.02,
		EpsilonDecay:    0.99,
		MaxEpisodeSteps: 60,
		MaxEpisodeStats: 80,
		GoalReward:      5,
		StepCost:        -0.1,
		ShapingWeight:   0.1,
		CorridorMargin:  0,
		Seed:            1,
	}
}

// QLearning projects the hyperparameter list onto a QLearningConfig, using the
// defaults for missing keys.
func (cfg *TrainingConfig) QLearning() QLearningConfig {
	def := DefaultQLearningConfig()
	return QLearningConfig{
		Alpha:           cfg.GetHyperParamOrDefault("alpha", def.Alpha),
		Gamma:           cfg.GetHyperParamOrDefault("gamma", def.Gamma),
		Epsilon:         cfg.GetHyperParamOrDefault("epsilon", def.Epsilon),
		EpsilonMin:      cfg.GetHyperParamOrDefault("epsilonMin", def.EpsilonMin),
		EpsilonDecay:    cfg.GetHyperParamOrDefault("epsilonDecay", def.EpsilonDecay),
		MaxEpisodeSteps: int(cfg.GetHyperParamOrDefault("maxEpisodeSteps", float64(def.MaxEpisodeSteps))),
		MaxEpisodeStats: int(cfg.GetHyperParamOrDefault("maxEpisodeStats", float64(def.MaxEpisodeStats))),
		GoalReward:      cfg.GetHyperParamOrDefault("goalReward", def.GoalReward),
		StepCost:        cfg.GetHyperParamOrDefault("stepCost", def.StepCost),
		ShapingWeight:   cfg.GetHyperParamOrDefault("shapingWeight", def.ShapingWeight),
		CorridorMargin:  int(cfg.GetHyperParamOrDefault("corridorMargin", float64(def.CorridorMargin))),
		Seed:            int64(cfg.GetHyperParamOrDefault("seed", float64(def.Seed))),
	}
}
