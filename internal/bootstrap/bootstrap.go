package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"image-resizer-go/internal/domain/eventbus"
	domainimage "image-resizer-go/internal/domain/image"
	platformconfig "image-resizer-go/internal/platform/config"
	platformerrors "image-resizer-go/internal/platform/errors"
	platformlogging "image-resizer-go/internal/platform/logging"
	platformobservability "image-resizer-go/internal/platform/observability"
	httptransport "image-resizer-go/internal/transport/http"
	httpresize "image-resizer-go/internal/transport/http/resize"
	httpsystem "image-resizer-go/internal/transport/http/system"
)

// Options tunes Run. The zero value reads config.yaml and listens on the
// configured address.
type Options struct {
	// ConfigPath pins the config file.
	ConfigPath string
	// Listener, when set, replaces the configured address.
	Listener net.Listener
	// Bus replaces the process wide event bus.
	Bus evbus.Bus
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	options               Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	slogger               *slog.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	events                *eventbus.AsyncEventBus
	batchStats            *platformobservability.BatchStats
	unsubscribeMetrics    func()
	resizer               *domainimage.Resizer
}

// Run loads configuration, wires the pipeline, serves HTTP and shuts down
// gracefully on SIGINT, SIGTERM or ctx cancellation.
func Run(ctx context.Context, opts Options) error {
	state := &appState{options: opts}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		state.close()
		return err
	}
	defer state.close()

	logger := state.logger
	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(rootCtx)

	signalCtx, stop := signal.NotifyContext(groupCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return platformerrors.Wrap(platformerrors.KindBootstrap, "http:start", "failed to start http server", err)
	}

	return waitForShutdown(signalCtx, cancel, logger, group, state.config.Server.ShutdownTimeout+5*time.Second)
}

// close releases whatever the init steps managed to create.
func (s *appState) close() {
	if s.events != nil {
		s.events.Stop()
	}
	if s.unsubscribeMetrics != nil {
		s.unsubscribeMetrics()
	}
	if shutdown := s.observabilityShutdown; shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil && s.logger != nil {
			s.logger.WarnTag("BOOT", "observability did not shut down cleanly: %v", err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "init graph:")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag("BOOT", "  %s (%s)", step.ID, step.Title)
			continue
		}
		logger.InfoTag("BOOT", "  %s (%s) <- %s", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Configure observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Subscribe batch metrics",
			DependsOn: []string{"observability:setup-hooks"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "resize:init-pipeline",
			Title:     "Build resize pipeline",
			DependsOn: []string{"config:load", "events:init-bus"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initPipelineStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().WithPath(state.options.ConfigPath).Load()
	if err != nil {
		return err
	}

	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	state.slogger = logger.Slog()
	logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)
	if state.config.Log.Dir != "" {
		logger.DebugTag("BOOT", "log file %s", filepath.Join(state.config.Log.Dir, state.config.Log.File))
	}
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: state.config.Observability.Enabled,
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := state.options.Bus
	if bus == nil {
		bus = eventbus.Get()
	}

	stats, unsubscribe, err := platformobservability.SubscribeBatchMetrics(bus)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:init-bus", "failed to subscribe batch metrics", err)
	}
	events := eventbus.NewAsyncEventBus(bus, eventbus.DefaultWorkers)
	events.Start()

	state.events = events
	state.batchStats = stats
	state.unsubscribeMetrics = unsubscribe
	return nil
}

func initPipelineStep(_ context.Context, state *appState) error {
	state.resizer = newResizer(state.config, state.logger, state.events)
	limits := state.resizer.Limits()
	state.logger.InfoTag("BOOT", "resize pipeline ready: max_files=%d max_bytes=%d workers=%d",
		limits.MaxItems, limits.MaxTotalBytes, state.config.Resize.Workers)
	return nil
}

// newResizer maps configuration onto the domain options.
func newResizer(cfg *platformconfig.Config, logger *platformlogging.Logger, publisher domainimage.Publisher) *domainimage.Resizer {
	return domainimage.New(domainimage.Options{
		Limits: domainimage.Limits{
			MaxItems:          cfg.Limits.MaxFiles,
			MaxTotalBytes:     cfg.Limits.MaxUploadBytes,
			AllowedExtensions: cfg.Limits.AllowedExtensions,
		},
		Workers:          cfg.Resize.Workers,
		JPEGQuality:      cfg.Resize.JPEGQuality,
		CompressionLevel: &cfg.Resize.CompressionLevel,
		Publisher:        publisher,
		Logger:           logger,
	})
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	staticIndex := filepath.Join(config.Server.StaticDir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") || config.Server.StaticDir == "" {
			httptransport.RespondError(c, http.StatusNotFound, "api not found", gin.H{})
			return
		}
		c.File(staticIndex)
	})

	resizeService, err := httpresize.NewService(config, logger, state.resizer)
	if err != nil {
		return nil, err
	}
	if err := resizeService.Register(groupCtx, apiGroup); err != nil {
		return nil, err
	}
	if err := httpsystem.NewService(logger, state.batchStats).Register(groupCtx, apiGroup); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener := state.options.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "server listening on http://%s", listener.Addr())
		logger.InfoTag("HTTP", "upload endpoint: POST http://%s/api/resize", listener.Addr())

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "http shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "http server stopped")
			}
		}()

		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "http server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
	timeout time.Duration,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutting down: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(timeout):
		logger.ErrorTag("BOOT", "shutdown timed out after %s", timeout)
		return platformerrors.New(platformerrors.KindBootstrap, "shutdown", "shutdown timed out")
	}
	return nil
}
