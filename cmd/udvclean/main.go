package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/app"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/log"
	"github.com/rahulmitra166/UDV-DataFiltering/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "udv.yaml", "Path to configuration source:\n\t\t\t  YAML: udv.yaml\n\t\t\t  SQLite: udv.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	profileName := flag.String("config-profile", config.DefaultProfile, "Named processing profile (SQLite backend only)")
	input := flag.String("input", "", "Raw velocity grid to correct (.dat text table or .msgpack snapshot)")
	output := flag.String("output", "", "Where to write the corrected grid")
	profile := flag.String("profile", "", "Optional path for the time-averaged velocity profile")
	threshold := flag.Float64("threshold", 0, "Override the spike threshold (mm/s)")
	startDepth := flag.Float64("start-depth", -1, "Override the depth (mm) at which correction starts")
	method := flag.String("method", "", "Override the reconstruction method: none, clamp_extreme, linear, quadratic, cubic, akima, pchip")
	format := flag.String("format", "", "Override the output format: text or msgpack")
	serve := flag.Bool("serve", false, "Run the REST correction service instead of a batch run")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("udvclean %s\n", version)
		os.Exit(0)
	}

	if !*serve && (*input == "" || *output == "") {
		fmt.Fprintf(os.Stderr, "Usage: %s -input <raw.dat> -output <corrected.dat> [-profile <profile.dat>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -serve\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Load configuration
	provider, err := loadConfig(*cfgFile, *cfgBackend, *profileName)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	application := app.New(provider, log.GetSugaredLogger())

	var overrides app.Overrides
	if *threshold > 0 {
		overrides.Threshold = threshold
	}
	if *startDepth >= 0 {
		overrides.StartDepthMM = startDepth
	}
	overrides.Method = *method
	overrides.OutputFormat = *format
	application.SetOverrides(overrides)

	if *serve {
		if err := application.Serve(context.Background()); err != nil {
			log.Errorf("Application error: %v", err)
			os.Exit(1)
		}
		return
	}

	if _, err := application.RunBatch(context.Background(), *input, *output, *profile); err != nil {
		log.Errorf("Correction failed: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile, cfgBackend, profileName string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		sqliteProvider, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		sqliteProvider.UseProfile(profileName)
		provider = sqliteProvider
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}

	if _, err := provider.LoadConfig(); err != nil {
		provider.Close()
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return provider, nil
}
