package config

import (
	"fmt"
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

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
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

// ParseYAML converts a YAML document into ConfigData, applying defaults for
// absent processing fields
func ParseYAML(doc []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Processing ProcessingYAML `yaml:"processing"`
		Storage    StorageYAML    `yaml:"storage,omitempty"`
		REST       *RESTYAML      `yaml:"rest,omitempty"`
	}

	if err := yaml.UnmarshalStrict(doc, &yamlConfig); err != nil {
		return nil, fmt.Errorf("error parsing YAML configuration: %w", err)
	}

	defaults := DefaultProcessing()
	p := yamlConfig.Processing
	config := &ConfigData{
		Processing: ProcessingData{
			Threshold:        p.Threshold,
			StartDepthMM:     defaults.StartDepthMM,
			Method:           p.Method,
			Workers:          p.Workers,
			Strict:           p.Strict,
			ReferenceDepthMM: defaults.ReferenceDepthMM,
			OutputFormat:     p.OutputFormat,
		},
	}
	if p.StartDepthMM != nil {
		config.Processing.StartDepthMM = *p.StartDepthMM
	}
	if p.ReferenceDepthMM != nil {
		config.Processing.ReferenceDepthMM = *p.ReferenceDepthMM
	}
	config.Processing.applyDefaults()

	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	if yamlConfig.REST != nil {
		config.REST = RESTServerData{
			ListenAddr: yamlConfig.REST.ListenAddr,
			HTTPPort:   yamlConfig.REST.Port,
		}
	}

	return config, nil
}

func (y *YAMLProvider) loaded() (*ConfigData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config, nil
}

// GetProcessing returns the correction settings
func (y *YAMLProvider) GetProcessing() (*ProcessingData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &cfg.Processing, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &cfg.Storage, nil
}

// GetRESTConfig returns the REST server configuration
func (y *YAMLProvider) GetRESTConfig() (*RESTServerData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &cfg.REST, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags
type ProcessingYAML struct {
	Threshold        float64  `yaml:"threshold,omitempty"`
	StartDepthMM     *float64 `yaml:"start-depth-mm,omitempty"`
	Method           string   `yaml:"method,omitempty"`
	Workers          int      `yaml:"workers,omitempty"`
	Strict           bool     `yaml:"strict,omitempty"`
	ReferenceDepthMM *float64 `yaml:"reference-depth-mm,omitempty"`
	OutputFormat     string   `yaml:"output-format,omitempty"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type RESTYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
}
