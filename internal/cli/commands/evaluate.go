package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/services"
	"card-approval-service/internal/evaluation"
)

// ErrQualityGate is returned when the evaluated model scores under the
// threshold.
var ErrQualityGate = errors.New("model does not meet the quality threshold")

type evaluateOptions struct {
	threshold  float64
	dataDir    string
	outputFile string
	modelPath  string
}

func newEvaluateCommand(global *globalOptions) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "gate a model version on hold-out F1",
		Long: `Load the model (from the registry, or from --model-path), score it on the
processed X_test.csv / y_test.csv pair and fail when F1 is below the
threshold. On success the version info is optionally written to --output-file.`,
		Example: `  $ modelctl evaluate --threshold 0.9 --output-file build/model.env`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, global, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0.90, "F1 score threshold for passing")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "training/data/processed", "directory holding X_test.csv and y_test.csv")
	cmd.Flags().StringVar(&opts.outputFile, "output-file", "", "write MODEL_VERSION, MODEL_RUN_ID and MODEL_F1_SCORE here on success")
	cmd.Flags().StringVar(&opts.modelPath, "model-path", "", "evaluate an embedded artifact directory instead of the registry")
	return cmd
}

func runEvaluate(cmd *cobra.Command, global *globalOptions, opts *evaluateOptions) error {
	cfg := global.cfg
	out := cmd.OutOrStdout()
	ctx := context.Background()

	banner(out, "MODEL EVALUATION")
	fmt.Fprintf(out, "   Model: %s (%s)\n", cfg.Model.Name, cfg.Model.Stage)
	fmt.Fprintf(out, "   Threshold: F1 >= %.2f\n", opts.threshold)

	tc := global.toolchain()
	res, err := resolve(ctx, tc, opts.modelPath, cfg.Model.Name, cfg.Model.Stage)
	if err != nil {
		return err
	}
	model, err := tc.models.Load(res.ModelDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "   Loaded %s v%s (run %s), flavor %s\n", res.Name, res.Version, res.RunID, flavorOrGeneric(model))

	data, err := evaluation.LoadTestSet(opts.dataDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "   Test samples: %d\n", len(data.Y))

	report, err := evaluation.Evaluate(model, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "   accuracy:  %.4f\n", report.Accuracy)
	fmt.Fprintf(out, "   precision: %.4f\n", report.Precision)
	fmt.Fprintf(out, "   recall:    %.4f\n", report.Recall)
	fmt.Fprintf(out, "   f1_score:  %.4f\n", report.F1)
	if report.ROCAUC != nil {
		fmt.Fprintf(out, "   roc_auc:   %.4f\n", *report.ROCAUC)
	}

	if !report.Passed(opts.threshold) {
		fmt.Fprintf(out, "FAILED: F1 score (%.4f) < threshold (%.2f)\n", report.F1, opts.threshold)
		return fmt.Errorf("%w: f1 %.4f < %.2f", ErrQualityGate, report.F1, opts.threshold)
	}
	fmt.Fprintf(out, "PASSED: F1 score (%.4f) >= threshold (%.2f)\n", report.F1, opts.threshold)

	if opts.outputFile != "" {
		err := services.WriteEnvFile(opts.outputFile, [][2]string{
			{"MODEL_VERSION", res.Version},
			{"MODEL_RUN_ID", res.RunID},
			{"MODEL_F1_SCORE", fmt.Sprintf("%.4f", report.F1)},
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Model info written to: %s\n", opts.outputFile)
	}
	return nil
}

func resolve(ctx context.Context, tc *toolchain, modelPath, name, stage string) (*domain.Resolution, error) {
	var (
		res *domain.Resolution
		err error
	)
	if modelPath != "" {
		res, err = tc.locator.ResolveLocal(modelPath)
	} else {
		res, err = tc.locator.ResolveRegistry(ctx, name, stage)
	}
	if err != nil {
		return nil, err
	}
	if res.Name == "" {
		res.Name = name
	}
	if res.Stage == "" {
		res.Stage = stage
	}
	return res, nil
}

func flavorOrGeneric(m *services.LoadedModel) string {
	if m.Flavor == "" {
		return "generic"
	}
	return m.Flavor
}
