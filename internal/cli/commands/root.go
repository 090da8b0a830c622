package commands

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"card-approval-service/internal/adapters/secondary/flavors"
	"card-approval-service/internal/adapters/secondary/mlflow"
	"card-approval-service/internal/adapters/secondary/numeric"
	"card-approval-service/internal/config"
	"card-approval-service/internal/core/services"
	"card-approval-service/internal/observability"
)

const version = "0.1.0"

// globalOptions are shared by every subcommand. Empty values keep the
// settings resolved from the environment.
type globalOptions struct {
	trackingURI string
	modelName   string
	modelStage  string
	cacheDir    string
	logLevel    string

	cfg *config.Config
}

// NewRootCommand builds the modelctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:     "modelctl",
		Short:   "Card approval model tooling",
		Version: version,
		Long: `Tooling around the card approval model: download a registry version into
the embedded artifact layout, gate a version on hold-out metrics, and inspect
what the service would load.`,
		Example: `  # Download the Production model for a container build
  $ modelctl download --output-dir models --output-env-file build/model.env

  # Fail the pipeline when F1 drops under 0.9
  $ modelctl evaluate --threshold 0.9 --data-dir training/data/processed

  # Show what the service would serve from an embedded directory
  $ modelctl inspect --model-path models`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(fmt.Sprintf("modelctl version %s\n", version))

	flags := root.PersistentFlags()
	flags.StringVar(&opts.trackingURI, "tracking-uri", "", "MLflow tracking URI (default: MLFLOW_TRACKING_URI)")
	flags.StringVar(&opts.modelName, "model-name", "", "registered model name (default: MODEL_NAME)")
	flags.StringVar(&opts.modelStage, "model-stage", "", "registry stage (default: MODEL_STAGE)")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "directory for registry downloads (default: MODEL_CACHE_DIR)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (default: LOG_LEVEL)")

	root.AddCommand(newDownloadCommand(opts))
	root.AddCommand(newEvaluateCommand(opts))
	root.AddCommand(newInspectCommand(opts))
	return root
}

// Execute runs modelctl.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	override(&cfg.Registry.TrackingURI, o.trackingURI)
	override(&cfg.Model.Name, o.modelName)
	override(&cfg.Model.Stage, o.modelStage)
	override(&cfg.Model.CacheDir, o.cacheDir)
	override(&cfg.Logger.Level, o.logLevel)

	if cfg.Registry.TrackingURI == "" {
		return fmt.Errorf("MLFLOW_TRACKING_URI not set")
	}

	// Logs go to stderr so stdout stays machine readable.
	cfg.Logger.File = ""
	if _, err := observability.InitLogger(cfg.Logger); err != nil {
		return err
	}
	log.SetOutput(cmd.ErrOrStderr())

	mlflow.SetupGCSCredentials(cfg.Registry.GCSCredentialsPath)
	o.cfg = cfg
	return nil
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// toolchain wires the same adapters the server uses.
type toolchain struct {
	registry      *mlflow.Client
	locator       *services.ArtifactLocator
	models        *services.ModelLoader
	preprocessing *services.PreprocessingLoader
}

func (o *globalOptions) toolchain() *toolchain {
	registry := mlflow.NewClient(&o.cfg.Registry)
	known := flavors.DefaultFlavors()
	return &toolchain{
		registry:      registry,
		locator:       services.NewArtifactLocator(registry, o.cfg.Model.CacheDir),
		models:        services.NewModelLoader(flavors.NewGenericLoader(known), known),
		preprocessing: services.NewPreprocessingLoader(numeric.NewDecoder(), registry, o.cfg.Model.CacheDir),
	}
}

func banner(w io.Writer, title string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, line)
}
