// Package cmd implements the openlabel command-line interface.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openlabel/openlabel/annotator"
	"github.com/openlabel/openlabel/backends"
	"github.com/openlabel/openlabel/backends/labelstudio"
	"github.com/openlabel/openlabel/backends/roboflow"
	"github.com/openlabel/openlabel/backends/supervisely"
	"github.com/openlabel/openlabel/config"
	"github.com/openlabel/openlabel/internal/observability"
	"github.com/openlabel/openlabel/store"
)

// App holds the dependencies shared by all commands. They are built lazily
// so that commands like "backends list" work without credentials for every
// backend.
type App struct {
	backend  string
	jsonOut  bool
	cfg      *config.Config
	logger   *zap.Logger
	cache    *store.Store
	annotate *annotator.Annotator
}

func (a *App) init() error {
	if a.annotate != nil {
		return nil
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger

	registry := backends.NewRegistry()
	for _, name := range cfg.ConfiguredBackends() {
		adapter, err := buildAdapter(name, cfg)
		if err != nil {
			return err
		}
		if err := registry.Register(adapter); err != nil {
			return err
		}
	}

	if cfg.Cache.Enabled {
		cache, err := store.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("open annotation cache: %w", err)
		}
		a.cache = cache
	}

	a.annotate = annotator.New(registry, a.cache, logger)

	if a.backend == "" {
		configured := cfg.ConfiguredBackends()
		if len(configured) == 1 {
			a.backend = configured[0]
		}
	}
	return nil
}

func buildAdapter(name string, cfg *config.Config) (backends.Backend, error) {
	bc := backends.DefaultConfig()
	switch name {
	case "supervisely":
		bc.APIKey = cfg.Backends.Supervisely.APIKey
		bc.BaseURL = cfg.Backends.Supervisely.BaseURL
		bc.Timeout = cfg.Backends.Supervisely.Timeout
		bc.MaxRetries = cfg.Backends.Supervisely.MaxRetries
		return supervisely.NewSuperviselyAdapter(bc), nil
	case "roboflow":
		bc.APIKey = cfg.Backends.Roboflow.APIKey
		bc.BaseURL = cfg.Backends.Roboflow.BaseURL
		bc.Workspace = cfg.Backends.Roboflow.Workspace
		bc.Timeout = cfg.Backends.Roboflow.Timeout
		bc.MaxRetries = cfg.Backends.Roboflow.MaxRetries
		return roboflow.NewRoboflowAdapter(bc), nil
	case "labelstudio":
		bc.APIKey = cfg.Backends.LabelStudio.APIKey
		bc.BaseURL = cfg.Backends.LabelStudio.BaseURL
		bc.Timeout = cfg.Backends.LabelStudio.Timeout
		bc.MaxRetries = cfg.Backends.LabelStudio.MaxRetries
		return labelstudio.NewLabelStudioAdapter(bc), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

// requireBackend returns the selected backend name or an error when none is
// selected and none can be inferred.
func (a *App) requireBackend() (string, error) {
	if a.backend == "" {
		return "", fmt.Errorf("no backend selected; pass --backend or configure exactly one")
	}
	return a.backend, nil
}

func (a *App) print(v any) {
	if a.jsonOut {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}
	fmt.Printf("%+v\n", v)
}

func (a *App) fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	if a.cache != nil {
		_ = a.cache.Close()
	}
	os.Exit(1)
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openlabel",
		Short: "Unified CLI for Supervisely, Roboflow and Label Studio annotation backends",
	}
	cmd.PersistentFlags().StringVarP(&app.backend, "backend", "b", "", "backend to operate on (supervisely, roboflow, labelstudio)")
	cmd.PersistentFlags().BoolVar(&app.jsonOut, "json", false, "print results as JSON")
	cmd.AddCommand(
		newBackendsCmd(app),
		newProjectCmd(app),
		newDatasetCmd(app),
		newImageCmd(app),
		newAnnotationCmd(app),
	)
	return cmd
}

// Execute initializes and runs the root command. It is the single entry point
// for the command-line interface.
func Execute() {
	app := &App{}
	rootCmd := newRootCmd(app)
	err := rootCmd.Execute()
	if app.cache != nil {
		_ = app.cache.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
