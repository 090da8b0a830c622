package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"card-approval-service/internal/core/services"
)

type inspectOptions struct {
	modelPath string
	output    string
}

func newInspectCommand(global *globalOptions) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "load the model and preprocessing as the service would and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.modelPath, "model-path", "", "embedded artifact directory (default: MODEL_PATH, else the registry)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}

func runInspect(cmd *cobra.Command, global *globalOptions, opts *inspectOptions) error {
	if opts.output != "yaml" && opts.output != "json" {
		return fmt.Errorf("unsupported output format %q", opts.output)
	}

	cfg := global.cfg
	override(&cfg.Model.Path, opts.modelPath)

	tc := global.toolchain()
	svc := services.NewModelService(services.ModelServiceConfig{
		Name:      cfg.Model.Name,
		Stage:     cfg.Model.Stage,
		LocalPath: cfg.Model.Path,
	}, tc.locator, tc.models, tc.preprocessing)

	if err := svc.Load(context.Background()); err != nil {
		return err
	}
	info := svc.Info()

	out := cmd.OutOrStdout()
	if opts.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(info)
}
