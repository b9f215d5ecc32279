package config

import (
	"fmt"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetProcessing() (*ProcessingData, error)
	GetStorageConfig() (*StorageData, error)
	GetRESTConfig() (*RESTServerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Processing ProcessingData `json:"processing"`
	Storage    StorageData    `json:"storage,omitempty"`
	REST       RESTServerData `json:"rest,omitempty"`
}

// ProcessingData holds the correction parameters. StartDepthMM is converted
// to a depth index against each dataset's depth axis.
type ProcessingData struct {
	Threshold        float64 `json:"threshold"`
	StartDepthMM     float64 `json:"start_depth_mm"`
	Method           string  `json:"method"`
	Workers          int     `json:"workers,omitempty"`
	Strict           bool    `json:"strict,omitempty"`
	ReferenceDepthMM float64 `json:"reference_depth_mm,omitempty"`
	OutputFormat     string  `json:"output_format,omitempty"`
}

// StorageData holds the configuration for the optional run archive
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

// TimescaleDBData holds the TimescaleDB/PostgreSQL connection settings
type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// RESTServerData holds the correction service's listener settings
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	HTTPPort   int    `json:"http_port,omitempty"`
}

// DefaultProcessing returns the processing settings used when a field is
// absent from the configuration source
func DefaultProcessing() ProcessingData {
	p := udv.DefaultParams()
	return ProcessingData{
		Threshold:        p.Threshold,
		StartDepthMM:     50.0,
		Method:           string(p.Method),
		Workers:          p.Workers,
		ReferenceDepthMM: 150.0,
		OutputFormat:     "text",
	}
}

// applyDefaults fills zero-valued processing fields from DefaultProcessing
func (p *ProcessingData) applyDefaults() {
	d := DefaultProcessing()
	if p.Threshold == 0 {
		p.Threshold = d.Threshold
	}
	if p.Method == "" {
		p.Method = d.Method
	}
	if p.Workers == 0 {
		p.Workers = d.Workers
	}
	if p.OutputFormat == "" {
		p.OutputFormat = d.OutputFormat
	}
}

// Params converts the processing settings into corrector parameters for a
// dataset with the given depth axis
func (p ProcessingData) Params(depth []float64) (udv.Params, error) {
	method, err := udv.ParseMethod(p.Method)
	if err != nil {
		return udv.Params{}, err
	}
	if p.Threshold <= 0 {
		return udv.Params{}, fmt.Errorf("%w: threshold must be positive, got %v", udv.ErrInvalidParameter, p.Threshold)
	}
	start := udv.StartIndexForDepth(depth, p.StartDepthMM)
	if start >= len(depth) {
		return udv.Params{}, fmt.Errorf("%w: start depth %.2f mm is beyond the deepest sample", udv.ErrInvalidParameter, p.StartDepthMM)
	}
	return udv.Params{
		Threshold:       p.Threshold,
		StartDepthIndex: start,
		Method:          method,
		Workers:         p.Workers,
		Strict:          p.Strict,
	}, nil
}

// ListenAddress returns host:port for the REST server, defaulting to all
// interfaces on port 8080
func (r RESTServerData) ListenAddress() string {
	addr := r.ListenAddr
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := r.HTTPPort
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", addr, port)
}
