package config

import (
	"fmt"

	"github.com/chrissnell/glacierfront/pkg/ablation"
	"go.uber.org/zap"
)

// Physics resolves the preset and explicit overrides into ablation constants.
func (p PhysicsData) Physics() (ablation.Physics, error) {
	var phys ablation.Physics
	switch p.Preset {
	case "", "seawater":
		phys = ablation.DefaultPhysics()
	case "freshwater":
		phys = ablation.FreshwaterPhysics()
	default:
		return ablation.Physics{}, fmt.Errorf("unknown physics preset %q", p.Preset)
	}

	if p.Gravity != 0 {
		phys.Gravity = p.Gravity
	}
	if p.RhoIce != 0 {
		phys.RhoIce = p.RhoIce
	}
	if p.RhoSea != 0 {
		phys.RhoSea = p.RhoSea
	}

	if err := phys.Validate(); err != nil {
		return ablation.Physics{}, err
	}
	return phys, nil
}

// Engine builds the ablation engine described by the configuration.
func (c *ConfigData) Engine(logger *zap.SugaredLogger) (*ablation.Engine, error) {
	phys, err := c.Physics.Physics()
	if err != nil {
		return nil, err
	}

	conv, err := ablation.ParseBalanceConvention(c.Convention)
	if err != nil {
		return nil, err
	}

	opts := []ablation.Option{ablation.WithConvention(conv)}
	if c.Tolerance != 0 {
		opts = append(opts, ablation.WithTolerance(c.Tolerance))
	}
	if logger != nil {
		opts = append(opts, ablation.WithLogger(logger))
	}

	return ablation.NewEngine(phys, opts...)
}

// Input converts the scenario into an engine input. The yield type string is
// checked here so that an unknown type never falls through to a default.
func (s ScenarioData) Input() (ablation.Input, error) {
	yield, err := ablation.NewYieldModel(ablation.YieldKind(s.Yield.Type), s.Yield.Tau0, s.Yield.Mu)
	if err != nil {
		return ablation.Input{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	in := ablation.Input{
		Profile: ablation.Profile{
			X:       s.Profile.X,
			Surface: s.Profile.Surface,
			Bed:     s.Profile.Bed,
		},
		Velocity: s.Velocity,
		Yield:    yield,
		Trim:     s.Yield.Trim,
		Verbose:  s.Verbose,
	}
	if s.TerminusMassBalance != nil {
		in.TerminusMassBalance = ablation.Float(*s.TerminusMassBalance)
	}

	return in, nil
}

// FindScenario returns the scenario with the given name.
func (c *ConfigData) FindScenario(name string) (*ScenarioData, error) {
	for i := range c.Scenarios {
		if c.Scenarios[i].Name == name {
			return &c.Scenarios[i], nil
		}
	}
	return nil, fmt.Errorf("scenario %q not found", name)
}

// FindSweep returns the sweep with the given name.
func (c *ConfigData) FindSweep(name string) (*SweepData, error) {
	for i := range c.Sweeps {
		if c.Sweeps[i].Name == name {
			return &c.Sweeps[i], nil
		}
	}
	return nil, fmt.Errorf("sweep %q not found", name)
}

// Validate checks cross references between sections. Scenario contents are
// validated by the engine when they are evaluated.
func (c *ConfigData) Validate() error {
	if _, err := c.Physics.Physics(); err != nil {
		return fmt.Errorf("physics: %w", err)
	}
	if _, err := ablation.ParseBalanceConvention(c.Convention); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, s := range c.Scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenario without a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate scenario name %q", s.Name)
		}
		seen[s.Name] = true
	}

	for _, sw := range c.Sweeps {
		if !seen[sw.Scenario] {
			return fmt.Errorf("sweep %q references unknown scenario %q", sw.Name, sw.Scenario)
		}
		if sw.Count < 1 {
			return fmt.Errorf("sweep %q needs a positive count, got %d", sw.Name, sw.Count)
		}
	}

	return nil
}
