package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/database"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/log"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
	"github.com/rahulmitra166/UDV-DataFiltering/pkg/config"
)

// Recorder archives completed correction runs and lists recent ones
type Recorder interface {
	Record(ctx context.Context, source string, params udv.Params, res *udv.Result) (uuid.UUID, error)
	Recent(ctx context.Context, limit int) ([]database.CorrectionRun, error)
}

// Controller represents the REST correction service
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	processing config.ProcessingData
	Server     http.Server
	archive    Recorder
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller. archive may be nil, in
// which case runs are not recorded.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, processing config.ProcessingData, archive Recorder, logger *zap.SugaredLogger) (*Controller, error) {
	if _, err := udv.ParseMethod(processing.Method); err != nil {
		return nil, fmt.Errorf("invalid default method for REST server: %w", err)
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		processing: processing,
		archive:    archive,
		logger:     logger,
	}

	// If a listen address was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
	}
	if rc.HTTPPort == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = rc.ListenAddress()
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server and shuts it down when the
// controller's context is cancelled
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger))

	router.HandleFunc("/healthz", c.handlers.Health).Methods(http.MethodGet)
	router.HandleFunc("/methods", c.handlers.GetMethods).Methods(http.MethodGet)
	router.HandleFunc("/correct", c.handlers.Correct).Methods(http.MethodPost)
	router.HandleFunc("/runs", c.handlers.GetRuns).Methods(http.MethodGet)

	return router
}
