package config

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// DefaultProfile is the configuration profile read unless another is chosen
const DefaultProfile = "default"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS configs (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS processing_configs (
	config_id          INTEGER PRIMARY KEY REFERENCES configs(id) ON DELETE CASCADE,
	threshold          REAL    NOT NULL,
	start_depth_mm     REAL    NOT NULL,
	method             TEXT    NOT NULL,
	workers            INTEGER,
	strict             INTEGER NOT NULL DEFAULT 0,
	reference_depth_mm REAL,
	output_format      TEXT
);

CREATE TABLE IF NOT EXISTS storage_configs (
	config_id                     INTEGER PRIMARY KEY REFERENCES configs(id) ON DELETE CASCADE,
	timescaledb_connection_string TEXT
);

CREATE TABLE IF NOT EXISTS rest_configs (
	config_id   INTEGER PRIMARY KEY REFERENCES configs(id) ON DELETE CASCADE,
	listen_addr TEXT,
	http_port   INTEGER
);
`

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db      *sql.DB
	dbPath  string
	profile string
}

// NewSQLiteProvider creates a new SQLite configuration provider reading the
// default profile
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
		db:      db,
		dbPath:  dbPath,
		profile: DefaultProfile,
	}, nil
}

// UseProfile switches the provider to a named configuration profile
func (s *SQLiteProvider) UseProfile(name string) {
	s.profile = name
}

// InitSchema creates the configuration tables if they do not exist
func (s *SQLiteProvider) InitSchema() error {
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create configuration schema: %w", err)
	}
	return nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	processing, err := s.GetProcessing()
	if err != nil {
		return nil, fmt.Errorf("failed to load processing config: %w", err)
	}
	config.Processing = *processing

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	rest, err := s.GetRESTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load REST config: %w", err)
	}
	config.REST = *rest

	return config, nil
}

// GetProcessing returns the correction settings of the active profile
func (s *SQLiteProvider) GetProcessing() (*ProcessingData, error) {
	query := `
		SELECT p.threshold, p.start_depth_mm, p.method, p.workers, p.strict,
		       p.reference_depth_mm, p.output_format
		FROM processing_configs p
		JOIN configs c ON c.id = p.config_id
		WHERE c.name = ?
	`

	var p ProcessingData
	var workers sql.NullInt64
	var refDepth sql.NullFloat64
	var outputFormat sql.NullString
	err := s.db.QueryRow(query, s.profile).Scan(
		&p.Threshold, &p.StartDepthMM, &p.Method, &workers, &p.Strict,
		&refDepth, &outputFormat,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no processing configuration for profile %q", s.profile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query processing config: %w", err)
	}

	p.ReferenceDepthMM = DefaultProcessing().ReferenceDepthMM
	if workers.Valid {
		p.Workers = int(workers.Int64)
	}
	if refDepth.Valid {
		p.ReferenceDepthMM = refDepth.Float64
	}
	if outputFormat.Valid {
		p.OutputFormat = outputFormat.String
	}
	p.applyDefaults()
	return &p, nil
}

// GetStorageConfig returns the archive settings of the active profile
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	query := `
		SELECT st.timescaledb_connection_string
		FROM storage_configs st
		JOIN configs c ON c.id = st.config_id
		WHERE c.name = ?
	`

	var connStr sql.NullString
	err := s.db.QueryRow(query, s.profile).Scan(&connStr)
	if errors.Is(err, sql.ErrNoRows) {
		return &StorageData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query storage config: %w", err)
	}

	storage := &StorageData{}
	if connStr.Valid && connStr.String != "" {
		storage.TimescaleDB = &TimescaleDBData{ConnectionString: connStr.String}
	}
	return storage, nil
}

// GetRESTConfig returns the REST listener settings of the active profile
func (s *SQLiteProvider) GetRESTConfig() (*RESTServerData, error) {
	query := `
		SELECT r.listen_addr, r.http_port
		FROM rest_configs r
		JOIN configs c ON c.id = r.config_id
		WHERE c.name = ?
	`

	var addr sql.NullString
	var port sql.NullInt64
	err := s.db.QueryRow(query, s.profile).Scan(&addr, &port)
	if errors.Is(err, sql.ErrNoRows) {
		return &RESTServerData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query REST config: %w", err)
	}

	rest := &RESTServerData{}
	if addr.Valid {
		rest.ListenAddr = addr.String
	}
	if port.Valid {
		rest.HTTPPort = int(port.Int64)
	}
	return rest, nil
}

// SaveConfig writes cfg as the active profile, replacing any previous values
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO configs (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, s.profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	var configID int64
	if err := tx.QueryRow(`SELECT id FROM configs WHERE name = ?`, s.profile).Scan(&configID); err != nil {
		return fmt.Errorf("failed to look up profile: %w", err)
	}

	p := cfg.Processing
	_, err = tx.Exec(`
		INSERT INTO processing_configs
			(config_id, threshold, start_depth_mm, method, workers, strict, reference_depth_mm, output_format)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(config_id) DO UPDATE SET
			threshold = excluded.threshold,
			start_depth_mm = excluded.start_depth_mm,
			method = excluded.method,
			workers = excluded.workers,
			strict = excluded.strict,
			reference_depth_mm = excluded.reference_depth_mm,
			output_format = excluded.output_format`,
		configID, p.Threshold, p.StartDepthMM, p.Method, p.Workers, p.Strict, p.ReferenceDepthMM, p.OutputFormat,
	)
	if err != nil {
		return fmt.Errorf("failed to save processing config: %w", err)
	}

	var connStr sql.NullString
	if cfg.Storage.TimescaleDB != nil {
		connStr = sql.NullString{String: cfg.Storage.TimescaleDB.ConnectionString, Valid: true}
	}
	_, err = tx.Exec(`
		INSERT INTO storage_configs (config_id, timescaledb_connection_string)
		VALUES (?, ?)
		ON CONFLICT(config_id) DO UPDATE SET
			timescaledb_connection_string = excluded.timescaledb_connection_string`,
		configID, connStr,
	)
	if err != nil {
		return fmt.Errorf("failed to save storage config: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO rest_configs (config_id, listen_addr, http_port)
		VALUES (?, ?, ?)
		ON CONFLICT(config_id) DO UPDATE SET
			listen_addr = excluded.listen_addr,
			http_port = excluded.http_port`,
		configID, cfg.REST.ListenAddr, cfg.REST.HTTPPort,
	)
	if err != nil {
		return fmt.Errorf("failed to save REST config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// IsReadOnly returns false; SQLite profiles can be written with SaveConfig
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database handle
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
