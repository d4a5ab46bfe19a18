package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// PhysicsYAML mirrors PhysicsData with YAML tags
type PhysicsYAML struct {
	Preset  string  `yaml:"preset,omitempty"`
	Gravity float64 `yaml:"gravity,omitempty"`
	RhoIce  float64 `yaml:"rho_ice,omitempty"`
	RhoSea  float64 `yaml:"rho_sea,omitempty"`
}

// ScenarioYAML mirrors ScenarioData with YAML tags
type ScenarioYAML struct {
	Name    string `yaml:"name"`
	Profile struct {
		X       []float64 `yaml:"x"`
		Surface []float64 `yaml:"surface"`
		Bed     []float64 `yaml:"bed"`
	} `yaml:"profile"`
	Velocity            []float64 `yaml:"velocity"`
	TerminusMassBalance *float64  `yaml:"terminus_mass_balance"`
	Yield               struct {
		Type string  `yaml:"type"`
		Tau0 float64 `yaml:"tau0"`
		Mu   float64 `yaml:"mu,omitempty"`
		Trim int     `yaml:"trim,omitempty"`
	} `yaml:"yield"`
	Verbose bool `yaml:"verbose,omitempty"`
}

// SweepYAML mirrors SweepData with YAML tags
type SweepYAML struct {
	Name      string  `yaml:"name"`
	Scenario  string  `yaml:"scenario"`
	Parameter string  `yaml:"parameter"`
	Start     float64 `yaml:"start"`
	Stop      float64 `yaml:"stop"`
	Count     int     `yaml:"count"`
	Workers   int     `yaml:"workers,omitempty"`
}

// StorageYAML mirrors StorageData with YAML tags
type StorageYAML struct {
	Postgres *struct {
		ConnectionString string `yaml:"connection_string"`
	} `yaml:"postgres,omitempty"`
}

// RESTYAML mirrors RESTServerData with YAML tags
type RESTYAML struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
	HTTPPort   int    `yaml:"http_port,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// ParseYAML decodes and validates a YAML configuration document
func ParseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Physics    PhysicsYAML    `yaml:"physics,omitempty"`
		Convention string         `yaml:"convention,omitempty"`
		Tolerance  float64        `yaml:"tolerance,omitempty"`
		Scenarios  []ScenarioYAML `yaml:"scenarios"`
		Sweeps     []SweepYAML    `yaml:"sweeps,omitempty"`
		Storage    StorageYAML    `yaml:"storage,omitempty"`
		REST       *RESTYAML      `yaml:"rest,omitempty"`
	}

	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Physics: PhysicsData{
			Preset:  yamlConfig.Physics.Preset,
			Gravity: yamlConfig.Physics.Gravity,
			RhoIce:  yamlConfig.Physics.RhoIce,
			RhoSea:  yamlConfig.Physics.RhoSea,
		},
		Convention: yamlConfig.Convention,
		Tolerance:  yamlConfig.Tolerance,
		Scenarios:  make([]ScenarioData, len(yamlConfig.Scenarios)),
		Sweeps:     make([]SweepData, len(yamlConfig.Sweeps)),
	}

	for i, s := range yamlConfig.Scenarios {
		config.Scenarios[i] = ScenarioData{
			Name: s.Name,
			Profile: ProfileData{
				X:       s.Profile.X,
				Surface: s.Profile.Surface,
				Bed:     s.Profile.Bed,
			},
			Velocity:            s.Velocity,
			TerminusMassBalance: s.TerminusMassBalance,
			Yield: YieldData{
				Type: s.Yield.Type,
				Tau0: s.Yield.Tau0,
				Mu:   s.Yield.Mu,
				Trim: s.Yield.Trim,
			},
			Verbose: s.Verbose,
		}
	}

	for i, sw := range yamlConfig.Sweeps {
		config.Sweeps[i] = SweepData{
			Name:      sw.Name,
			Scenario:  sw.Scenario,
			Parameter: sw.Parameter,
			Start:     sw.Start,
			Stop:      sw.Stop,
			Count:     sw.Count,
			Workers:   sw.Workers,
		}
	}

	if yamlConfig.Storage.Postgres != nil {
		config.Storage.Postgres = &PostgresData{
			ConnectionString: yamlConfig.Storage.Postgres.ConnectionString,
		}
	}

	if yamlConfig.REST != nil {
		config.REST = &RESTServerData{
			ListenAddr: yamlConfig.REST.ListenAddr,
			HTTPPort:   yamlConfig.REST.HTTPPort,
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// GetScenarios returns scenario configurations
func (y *YAMLProvider) GetScenarios() ([]ScenarioData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Scenarios, nil
}

// GetSweeps returns sweep configurations
func (y *YAMLProvider) GetSweeps() ([]SweepData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Sweeps, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

// GetRESTConfig returns the REST server configuration, or nil if none is set
func (y *YAMLProvider) GetRESTConfig() (*RESTServerData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.REST, nil
}

// IsReadOnly returns true for YAML provider (no write operations supported)
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
