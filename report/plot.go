package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/geofit/evaluation"
	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// PlotSweep draws test (solid) and train (dashed) MSE against λ on a log
// axis, one colour per sweep, and marks each best λ. The image format
// follows the extension of path (.png, .svg, .pdf ...). Candidates with
// λ = 0 cannot be placed on a log axis and are left out.
func PlotSweep(path string, results ...*evaluation.SweepResult) error {
	if len(results) == 0 {
		return errors.NewEmptyInputError("report.PlotSweep")
	}

	p := plot.New()
	p.Title.Text = "Regularization sweep"
	p.X.Label.Text = "λ"
	p.Y.Label.Text = "MSE"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	plotted := 0
	for i, res := range results {
		var test, train plotter.XYs
		for _, pt := range res.Points {
			if pt.Lambda <= 0 {
				continue
			}
			test = append(test, plotter.XY{X: pt.Lambda, Y: pt.TestMSE})
			train = append(train, plotter.XY{X: pt.Lambda, Y: pt.TrainMSE})
		}
		if len(test) == 0 {
			continue
		}
		plotted++

		col := plotutil.Color(i)
		name := fmt.Sprintf("%s %s", res.Kind, res.Target)

		testLine, err := plotter.NewLine(test)
		if err != nil {
			return errors.Wrap(err, "report: test curve")
		}
		testLine.Color = col
		testLine.Width = vg.Points(1.2)
		p.Add(testLine)
		p.Legend.Add(name+" test", testLine)

		trainLine, err := plotter.NewLine(train)
		if err != nil {
			return errors.Wrap(err, "report: train curve")
		}
		trainLine.Color = col
		trainLine.Width = vg.Points(0.8)
		trainLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(trainLine)
		p.Legend.Add(name+" train", trainLine)

		if res.Best.Lambda > 0 {
			best, err := plotter.NewScatter(plotter.XYs{{X: res.Best.Lambda, Y: res.Best.TestMSE}})
			if err != nil {
				return errors.Wrap(err, "report: best point")
			}
			best.GlyphStyle.Color = col
			best.GlyphStyle.Radius = vg.Points(3)
			best.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(best)
		}
	}
	if plotted == 0 {
		return errors.NewValueError("report.PlotSweep", "no candidate with λ > 0 to plot")
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "report: save %s", path)
	}
	return nil
}
