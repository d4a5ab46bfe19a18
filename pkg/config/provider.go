package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetScenarios() ([]ScenarioData, error)
	GetSweeps() ([]SweepData, error)
	GetStorageConfig() (*StorageData, error)
	GetRESTConfig() (*RESTServerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Physics    PhysicsData     `json:"physics"`
	Convention string          `json:"convention,omitempty"`
	Tolerance  float64         `json:"tolerance,omitempty"`
	Scenarios  []ScenarioData  `json:"scenarios"`
	Sweeps     []SweepData     `json:"sweeps,omitempty"`
	Storage    StorageData     `json:"storage,omitempty"`
	REST       *RESTServerData `json:"rest,omitempty"`
}

// PhysicsData holds the physical constants. A preset fills in defaults and
// any non-zero explicit value overrides the preset.
type PhysicsData struct {
	Preset  string  `json:"preset,omitempty"` // "seawater" (default) or "freshwater"
	Gravity float64 `json:"gravity,omitempty"`
	RhoIce  float64 `json:"rho_ice,omitempty"`
	RhoSea  float64 `json:"rho_sea,omitempty"`
}

// ScenarioData is one geometry/velocity snapshot with its closure settings
type ScenarioData struct {
	Name                string      `json:"name"`
	Profile             ProfileData `json:"profile"`
	Velocity            []float64   `json:"velocity"`
	TerminusMassBalance *float64    `json:"terminus_mass_balance"`
	Yield               YieldData   `json:"yield"`
	Verbose             bool        `json:"verbose,omitempty"`
}

// ProfileData holds the flowline sequences
type ProfileData struct {
	X       []float64 `json:"x"`
	Surface []float64 `json:"surface"`
	Bed     []float64 `json:"bed"`
}

// YieldData holds the string-tagged yield configuration as it appears in files
type YieldData struct {
	Type string  `json:"type"`
	Tau0 float64 `json:"tau0"`
	Mu   float64 `json:"mu,omitempty"`
	Trim int     `json:"trim,omitempty"`
}

// SweepData describes a one-parameter sweep over a named scenario
type SweepData struct {
	Name      string  `json:"name"`
	Scenario  string  `json:"scenario"`
	Parameter string  `json:"parameter"`
	Start     float64 `json:"start"`
	Stop      float64 `json:"stop"`
	Count     int     `json:"count"`
	Workers   int     `json:"workers,omitempty"`
}

// StorageData holds the configuration for result storage backends
type StorageData struct {
	Postgres *PostgresData `json:"postgres,omitempty"`
}

// PostgresData holds PostgreSQL/TimescaleDB connection settings
type PostgresData struct {
	ConnectionString string `json:"connection_string"`
}

// RESTServerData holds the REST server configuration
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	HTTPPort   int    `json:"http_port,omitempty"`
}
