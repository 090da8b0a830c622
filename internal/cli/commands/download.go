package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"card-approval-service/internal/core/services"
)

type downloadOptions struct {
	outputDir     string
	outputEnvFile string
}

func newDownloadCommand(global *globalOptions) *cobra.Command {
	opts := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "download a registry model into the embedded layout",
		Long: `Resolve the newest version of the model at the given stage, download the
model and its preprocessing artifacts into the output directory, and write
model_metadata.json next to them. The result can be served with MODEL_PATH.`,
		Example: `  $ modelctl download --model-stage Staging --output-dir models`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "models", "output directory for model artifacts")
	cmd.Flags().StringVar(&opts.outputEnvFile, "output-env-file", "", "write MODEL_VERSION and MODEL_RUN_ID to this file")
	return cmd
}

func runDownload(cmd *cobra.Command, global *globalOptions, opts *downloadOptions) error {
	cfg := global.cfg
	out := cmd.ErrOrStderr()

	banner(out, "MODEL DOWNLOAD")
	fmt.Fprintf(out, "   MLflow URI: %s\n", cfg.Registry.TrackingURI)
	fmt.Fprintf(out, "   Model: %s (%s)\n", cfg.Model.Name, cfg.Model.Stage)
	fmt.Fprintf(out, "   Output: %s\n", opts.outputDir)

	tc := global.toolchain()
	downloader := services.NewModelDownloader(tc.locator, tc.registry)

	result, err := downloader.Download(context.Background(), cfg.Model.Name, cfg.Model.Stage, opts.outputDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "   Model downloaded to: %s\n", result.ModelDir)
	if result.PreprocessingErr != nil {
		fmt.Fprintf(out, "   Could not download preprocessing artifacts: %v\n", result.PreprocessingErr)
		fmt.Fprintln(out, "   Preprocessing will use MLflow at runtime if needed")
	} else {
		fmt.Fprintf(out, "   Preprocessing artifacts downloaded to: %s\n", result.PreprocessingDir)
		for _, name := range result.MissingFiles {
			fmt.Fprintf(out, "   %s NOT FOUND\n", name)
		}
	}

	if opts.outputEnvFile != "" {
		err := services.WriteEnvFile(opts.outputEnvFile, [][2]string{
			{"MODEL_VERSION", result.Metadata.Version},
			{"MODEL_RUN_ID", result.Metadata.RunID},
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "   Environment file written to: %s\n", opts.outputEnvFile)
	}

	banner(out, "MODEL DOWNLOAD COMPLETE")
	fmt.Fprintf(out, "   Version: %s\n", result.Metadata.Version)
	fmt.Fprintf(out, "   Run ID: %s\n", result.Metadata.RunID)
	return nil
}
