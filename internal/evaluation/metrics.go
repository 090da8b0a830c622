package evaluation

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"card-approval-service/internal/core/services"
)

// Report holds binary classification metrics for the positive class.
// ROCAUC is nil when no scores were available or only one class is present.
type Report struct {
	Samples   int      `json:"samples"`
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1_score"`
	ROCAUC    *float64 `json:"roc_auc,omitempty"`
}

// Passed reports whether F1 reaches threshold.
func (r *Report) Passed(threshold float64) bool {
	return r.F1 >= threshold
}

// Calculate scores predicted labels against truth. Undefined ratios are 0.
// scores may be nil.
func Calculate(truth, predicted, scores []float64) (*Report, error) {
	if len(truth) != len(predicted) {
		return nil, fmt.Errorf("%d labels but %d predictions", len(truth), len(predicted))
	}
	if scores != nil && len(scores) != len(truth) {
		return nil, fmt.Errorf("%d labels but %d scores", len(truth), len(scores))
	}
	if len(truth) == 0 {
		return nil, fmt.Errorf("no samples")
	}

	var tp, fp, tn, fn float64
	for i := range truth {
		actual, guess := truth[i] == 1, predicted[i] == 1
		switch {
		case actual && guess:
			tp++
		case !actual && guess:
			fp++
		case actual && !guess:
			fn++
		default:
			tn++
		}
	}

	r := &Report{
		Samples:   len(truth),
		Accuracy:  (tp + tn) / float64(len(truth)),
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
	}
	r.F1 = ratio(2*r.Precision*r.Recall, r.Precision+r.Recall)

	if scores != nil {
		if auc, ok := rocAUC(truth, scores); ok {
			r.ROCAUC = &auc
		}
	}
	return r, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// rocAUC integrates the ROC curve. It is undefined when only one class is
// present.
func rocAUC(truth, scores []float64) (float64, bool) {
	y := make([]float64, len(scores))
	copy(y, scores)
	classes := make([]bool, len(truth))
	var positives int
	for i, t := range truth {
		classes[i] = t == 1
		if classes[i] {
			positives++
		}
	}
	if positives == 0 || positives == len(truth) {
		return 0, false
	}

	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), true
}

// Evaluate runs the model over the dataset. Scores come from the native
// predictor when it exposes probabilities; otherwise ROC AUC is skipped.
func Evaluate(model *services.LoadedModel, data *Dataset) (*Report, error) {
	predicted, err := model.Predictor.Predict(data.X)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	var scores []float64
	if model.Native != nil {
		if proba, err := model.Native.PredictProba(data.X); err == nil && len(proba) == len(data.X) {
			scores = make([]float64, len(proba))
			for i, p := range proba {
				if len(p) < 2 {
					scores = nil
					break
				}
				scores[i] = p[1]
			}
		}
	}

	return Calculate(data.Y, predicted, scores)
}
