// Package report renders evaluation results as aligned text tables and
// charts.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/YuminosukeSato/geofit/evaluation"
	"github.com/YuminosukeSato/geofit/pkg/errors"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func flush(tw *tabwriter.Writer) error {
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "report: flush")
	}
	return nil
}

func num(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

// optNum renders a metric that may be undefined.
func optNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}

// WriteSplit writes one row per holdout result.
func WriteSplit(w io.Writer, results ...*evaluation.SplitResult) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "target\tmodel\ttrain rows\ttest rows\ttrain MSE\ttest MSE\ttrain R²\ttest R²\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t\n",
			r.Target, r.Spec, r.TrainSize, r.TestSize,
			num(r.TrainMSE), num(r.TestMSE), optNum(r.TrainR2), optNum(r.TestR2))
	}
	return flush(tw)
}

// WriteModel writes the size of each fitted model: how many coefficients
// are non-zero at the given regularization strength.
func WriteModel(w io.Writer, results ...*evaluation.SplitResult) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "target\tmodel\tλ\tnon-zero\tcoefficients\ttest MSE\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t\n",
			r.Target, r.Spec.Kind, num(r.Spec.Lambda), r.NonZero(), r.Coefficients.Len(), num(r.TestMSE))
	}
	return flush(tw)
}

// WriteCV writes the per-fold errors followed by the k-fold means.
func WriteCV(w io.Writer, res *evaluation.CVResult) error {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "%d-fold cross-validation (%s)\n", res.K, res.Spec)
	fmt.Fprintln(tw, "target\tfold\trows\ttrain MSE\ttest MSE\t")
	for _, scores := range res.Targets {
		for i, fold := range res.Folds {
			fmt.Fprintf(tw, "%s\t%d\t[%d, %d)\t%s\t%s\t\n",
				scores.Target, fold.Index, fold.Start, fold.End,
				num(scores.TrainScores[i]), num(scores.TestScores[i]))
		}
	}
	if err := flush(tw); err != nil {
		return err
	}

	tw = newTabWriter(w)
	fmt.Fprintln(tw, "target\tmean train MSE\tmean test MSE\tstd test MSE\t")
	for _, scores := range res.Targets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			scores.Target, num(scores.MeanTrainMSE), num(scores.MeanTestMSE), num(scores.StdTestMSE))
	}
	return flush(tw)
}

// WriteSweep writes every candidate of a sweep and marks the best one.
func WriteSweep(w io.Writer, res *evaluation.SweepResult) error {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "%s sweep for %s (%d candidates)\n", res.Kind, res.Target, len(res.Points))
	fmt.Fprintln(tw, "\tλ\ttrain MSE\ttest MSE\tnon-zero\t")
	marked := false
	for _, p := range res.Points {
		mark := ""
		if !marked && p == res.Best {
			mark, marked = "*", true
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t\n", mark, num(p.Lambda), num(p.TrainMSE), num(p.TestMSE), p.NonZero)
	}
	fmt.Fprintf(tw, "best λ = %s (test MSE %s)\n", num(res.Best.Lambda), num(res.Best.TestMSE))
	return flush(tw)
}
