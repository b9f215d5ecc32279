package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/archive"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/controllers/restserver"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/datafile"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
	"github.com/rahulmitra166/UDV-DataFiltering/pkg/config"
)

// Overrides replace individual processing settings from the config source.
// Nil and empty fields leave the configured value in place.
type Overrides struct {
	Threshold    *float64
	StartDepthMM *float64
	Method       string
	OutputFormat string
}

func (o Overrides) apply(p *config.ProcessingData) {
	if o.Threshold != nil {
		p.Threshold = *o.Threshold
	}
	if o.StartDepthMM != nil {
		p.StartDepthMM = *o.StartDepthMM
	}
	if o.Method != "" {
		p.Method = o.Method
	}
	if o.OutputFormat != "" {
		p.OutputFormat = o.OutputFormat
	}
}

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	overrides      Overrides
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// SetOverrides installs command-line overrides for the processing settings
func (a *App) SetOverrides(o Overrides) {
	a.overrides = o
}

func (a *App) processing() (config.ProcessingData, error) {
	proc, err := a.configProvider.GetProcessing()
	if err != nil {
		return config.ProcessingData{}, fmt.Errorf("error loading processing config: %w", err)
	}
	p := *proc
	a.overrides.apply(&p)
	return p, nil
}

// openArchive connects to the run archive when one is configured. A nil
// archive and nil error mean archiving is disabled.
func (a *App) openArchive() (*archive.Archive, error) {
	storage, err := a.configProvider.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading storage config: %w", err)
	}
	if storage.TimescaleDB == nil || storage.TimescaleDB.ConnectionString == "" {
		return nil, nil
	}
	return archive.Open(storage.TimescaleDB.ConnectionString, a.logger.Named("archive"))
}

// RunBatch corrects the dataset at input and writes it to output. When
// profile is set, the time-averaged velocity profile is written there too.
func (a *App) RunBatch(ctx context.Context, input, output, profile string) (*udv.Result, error) {
	proc, err := a.processing()
	if err != nil {
		return nil, err
	}
	outFormat, err := datafile.ParseFormat(proc.OutputFormat)
	if err != nil {
		return nil, err
	}

	ds, err := datafile.Load(input, datafile.FormatFromPath(input))
	if err != nil {
		return nil, err
	}
	rows, cols := ds.Velocity.Dims()
	a.logger.Infof("loaded %s: %d depth samples x %d time samples", input, rows, cols)

	params, err := proc.Params(ds.Depth)
	if err != nil {
		return nil, err
	}
	a.logger.Infof("correcting from depth index %d (%.2f mm) with method %s, threshold %.2f",
		params.StartDepthIndex, ds.Depth[params.StartDepthIndex], params.Method, params.Threshold)

	res, err := udv.NewCorrector(params, a.logger.Named("udv")).Correct(ctx, ds)
	if err != nil {
		return nil, err
	}

	out := udv.Dataset{Time: ds.Time, Depth: ds.Depth, Velocity: res.Corrected}
	if err := datafile.Save(output, outFormat, out); err != nil {
		return nil, err
	}
	a.logger.Infof("wrote corrected grid to %s (%d samples replaced)", output, res.Flagged())

	if profile != "" {
		if err := datafile.SaveProfile(profile, ds.Depth, udv.MeanProfile(res.Corrected)); err != nil {
			return nil, err
		}
		a.logger.Infof("wrote mean velocity profile to %s", profile)
	}

	if proc.ReferenceDepthMM > 0 {
		line, err := udv.LineAtDepth(ds.Depth, ds.Velocity, res.Corrected, proc.ReferenceDepthMM)
		if err != nil {
			a.logger.Warnf("could not extract reference depth line: %v", err)
		} else {
			changed := 0
			for i := range line.Raw {
				if line.Raw[i] != line.Corrected[i] {
					changed++
				}
			}
			a.logger.Infof("reference depth %.2f mm (row %d): %d of %d samples changed",
				line.DepthMM, line.Index, changed, len(line.Raw))
		}
	}

	arc, err := a.openArchive()
	if err != nil {
		a.logger.Warnf("run archive unavailable: %v", err)
	} else if arc != nil {
		defer arc.Close()
		id, err := arc.Record(ctx, input, params, res)
		if err != nil {
			a.logger.Warnf("could not archive correction run: %v", err)
		} else {
			a.logger.Infof("archived correction run %s", id)
		}
	}

	return res, nil
}

// Serve runs the REST correction service and blocks until shutdown
func (a *App) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	proc, err := a.processing()
	if err != nil {
		return err
	}
	rest, err := a.configProvider.GetRESTConfig()
	if err != nil {
		return fmt.Errorf("error loading REST config: %w", err)
	}

	var recorder restserver.Recorder
	arc, err := a.openArchive()
	if err != nil {
		return err
	}
	if arc != nil {
		defer arc.Close()
		recorder = arc
	}

	ctrl, err := restserver.NewController(ctx, &wg, *rest, proc, recorder, a.logger.Named("rest"))
	if err != nil {
		return err
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
