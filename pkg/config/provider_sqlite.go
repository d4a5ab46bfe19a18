package config

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/chrissnell/glacierfront/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrateSQLite brings a SQLite catalogue up to the latest schema
func MigrateSQLite(db *sql.DB, logger *zap.SugaredLogger) error {
	provider := migrate.NewFSProvider(migrationFS, "migrations", "schema_migrations")
	return migrate.NewMigrator(db, provider, logger).MigrateUp()
}

// SQLiteProvider implements ConfigProvider for a SQLite scenario catalogue.
// Sequences are stored as JSON arrays in TEXT columns.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	if err := s.loadSettings(config); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	scenarios, err := s.GetScenarios()
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}
	config.Scenarios = scenarios

	sweeps, err := s.GetSweeps()
	if err != nil {
		return nil, fmt.Errorf("failed to load sweeps: %w", err)
	}
	config.Sweeps = sweeps

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	rest, err := s.GetRESTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load REST config: %w", err)
	}
	config.REST = rest

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (s *SQLiteProvider) loadSettings(config *ConfigData) error {
	var preset, convention sql.NullString
	var gravity, rhoIce, rhoSea, tolerance sql.NullFloat64

	err := s.db.QueryRow(`
		SELECT preset, gravity, rho_ice, rho_sea, convention, tolerance
		FROM settings WHERE id = 1
	`).Scan(&preset, &gravity, &rhoIce, &rhoSea, &convention, &tolerance)
	if err == sql.ErrNoRows {
		// No settings row: seawater defaults
		return nil
	}
	if err != nil {
		return err
	}

	config.Physics = PhysicsData{
		Preset:  preset.String,
		Gravity: gravity.Float64,
		RhoIce:  rhoIce.Float64,
		RhoSea:  rhoSea.Float64,
	}
	config.Convention = convention.String
	config.Tolerance = tolerance.Float64

	return nil
}

// GetScenarios returns scenario configurations from the database
func (s *SQLiteProvider) GetScenarios() ([]ScenarioData, error) {
	query := `
		SELECT name, profile_x, profile_surface, profile_bed, velocity,
		       terminus_mass_balance, yield_type, tau0, mu, trim, verbose
		FROM scenarios
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []ScenarioData
	for rows.Next() {
		var sc ScenarioData
		var x, surface, bed, velocity string
		var massBalance sql.NullFloat64

		err := rows.Scan(
			&sc.Name, &x, &surface, &bed, &velocity,
			&massBalance, &sc.Yield.Type, &sc.Yield.Tau0, &sc.Yield.Mu,
			&sc.Yield.Trim, &sc.Verbose,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenario row: %w", err)
		}

		columns := []struct {
			name string
			raw  string
			dst  *[]float64
		}{
			{"profile_x", x, &sc.Profile.X},
			{"profile_surface", surface, &sc.Profile.Surface},
			{"profile_bed", bed, &sc.Profile.Bed},
			{"velocity", velocity, &sc.Velocity},
		}
		for _, c := range columns {
			if err := json.Unmarshal([]byte(c.raw), c.dst); err != nil {
				return nil, fmt.Errorf("scenario %s: failed to decode %s: %w", sc.Name, c.name, err)
			}
		}

		// A NULL mass balance stays nil so the engine can reject it
		if massBalance.Valid {
			mb := massBalance.Float64
			sc.TerminusMassBalance = &mb
		}

		scenarios = append(scenarios, sc)
	}

	return scenarios, rows.Err()
}

// GetSweeps returns sweep configurations from the database
func (s *SQLiteProvider) GetSweeps() ([]SweepData, error) {
	rows, err := s.db.Query(`
		SELECT name, scenario, parameter, start_value, stop_value, count, workers
		FROM sweeps
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweeps: %w", err)
	}
	defer rows.Close()

	var sweeps []SweepData
	for rows.Next() {
		var sw SweepData
		if err := rows.Scan(&sw.Name, &sw.Scenario, &sw.Parameter, &sw.Start, &sw.Stop, &sw.Count, &sw.Workers); err != nil {
			return nil, fmt.Errorf("failed to scan sweep row: %w", err)
		}
		sweeps = append(sweeps, sw)
	}

	return sweeps, rows.Err()
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	rows, err := s.db.Query(`SELECT backend_type, connection_string FROM storage_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backendType string
		var connectionString sql.NullString
		if err := rows.Scan(&backendType, &connectionString); err != nil {
			return nil, fmt.Errorf("failed to scan storage config row: %w", err)
		}

		switch backendType {
		case "postgres", "timescaledb":
			if connectionString.Valid {
				storage.Postgres = &PostgresData{ConnectionString: connectionString.String}
			}
		default:
			return nil, fmt.Errorf("unsupported storage backend %q", backendType)
		}
	}

	return storage, rows.Err()
}

// GetRESTConfig returns the REST server configuration, or nil if none is stored
func (s *SQLiteProvider) GetRESTConfig() (*RESTServerData, error) {
	var listenAddr sql.NullString
	var port sql.NullInt64

	err := s.db.QueryRow(`SELECT listen_addr, http_port FROM rest_config WHERE id = 1`).Scan(&listenAddr, &port)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query REST config: %w", err)
	}

	return &RESTServerData{
		ListenAddr: listenAddr.String,
		HTTPPort:   int(port.Int64),
	}, nil
}

// IsReadOnly returns false; SaveConfig can replace the catalogue
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Migrate brings the database up to the latest schema
func (s *SQLiteProvider) Migrate(logger *zap.SugaredLogger) error {
	return MigrateSQLite(s.db, logger)
}

// SaveConfig replaces the stored configuration with config in one transaction
func (s *SQLiteProvider) SaveConfig(config *ConfigData) error {
	if err := config.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sweeps", "scenarios", "settings", "storage_configs", "rest_config"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	p := config.Physics
	_, err = tx.Exec(`
		INSERT INTO settings (id, preset, gravity, rho_ice, rho_sea, convention, tolerance)
		VALUES (1, ?, ?, ?, ?, ?, ?)`,
		nullString(p.Preset), nullFloat(p.Gravity), nullFloat(p.RhoIce), nullFloat(p.RhoSea),
		nullString(config.Convention), nullFloat(config.Tolerance))
	if err != nil {
		return fmt.Errorf("failed to insert settings: %w", err)
	}

	for _, sc := range config.Scenarios {
		encoded := make([]string, 0, 4)
		for _, seq := range [][]float64{sc.Profile.X, sc.Profile.Surface, sc.Profile.Bed, sc.Velocity} {
			if seq == nil {
				seq = []float64{}
			}
			b, err := json.Marshal(seq)
			if err != nil {
				return fmt.Errorf("scenario %s: failed to encode sequence: %w", sc.Name, err)
			}
			encoded = append(encoded, string(b))
		}

		var massBalance sql.NullFloat64
		if sc.TerminusMassBalance != nil {
			massBalance = sql.NullFloat64{Float64: *sc.TerminusMassBalance, Valid: true}
		}

		_, err := tx.Exec(`
			INSERT INTO scenarios (name, profile_x, profile_surface, profile_bed, velocity,
			                       terminus_mass_balance, yield_type, tau0, mu, trim, verbose)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sc.Name, encoded[0], encoded[1], encoded[2], encoded[3],
			massBalance, sc.Yield.Type, sc.Yield.Tau0, sc.Yield.Mu, sc.Yield.Trim, sc.Verbose)
		if err != nil {
			return fmt.Errorf("failed to insert scenario %s: %w", sc.Name, err)
		}
	}

	for _, sw := range config.Sweeps {
		_, err := tx.Exec(`
			INSERT INTO sweeps (name, scenario, parameter, start_value, stop_value, count, workers)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sw.Name, sw.Scenario, sw.Parameter, sw.Start, sw.Stop, sw.Count, sw.Workers)
		if err != nil {
			return fmt.Errorf("failed to insert sweep %s: %w", sw.Name, err)
		}
	}

	if pg := config.Storage.Postgres; pg != nil {
		_, err := tx.Exec(`INSERT INTO storage_configs (backend_type, connection_string) VALUES ('postgres', ?)`,
			pg.ConnectionString)
		if err != nil {
			return fmt.Errorf("failed to insert storage config: %w", err)
		}
	}

	if rc := config.REST; rc != nil {
		_, err := tx.Exec(`INSERT INTO rest_config (id, listen_addr, http_port) VALUES (1, ?, ?)`,
			nullString(rc.ListenAddr), rc.HTTPPort)
		if err != nil {
			return fmt.Errorf("failed to insert REST config: %w", err)
		}
	}

	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
