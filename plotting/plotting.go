// Package plotting renders model diagnostics with gonum/plot.
// Each builder returns a *plot.Plot so callers can adjust titles or
// styles before saving; Save writes the figure in the format implied
// by the file extension.
package plotting

import (
	"image/color"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

var (
	observedColor = color.RGBA{R: 0x33, G: 0x66, B: 0xcc, A: 0xff}
	fitColor      = color.RGBA{R: 0xcc, G: 0x33, B: 0x33, A: 0xff}
	zeroLineColor = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
)

// RegressionFit plots observations as a scatter and the model's
// predictions as a line over the sorted feature values. The data must
// have exactly one feature column.
func RegressionFit(X mat.Matrix, y *mat.VecDense, m model.Predictor) (*plot.Plot, error) {
	if X == nil || y == nil {
		return nil, errors.NewValueError("plotting.RegressionFit", "inputs must not be nil")
	}
	if m == nil {
		return nil, errors.NewValueError("plotting.RegressionFit", "model must not be nil")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.NewValueError("plotting.RegressionFit", "input must not be empty")
	}
	if cols != 1 {
		return nil, errors.NewValueError("plotting.RegressionFit",
			"requires exactly one feature column")
	}
	if y.Len() != rows {
		return nil, errors.NewDimensionError("plotting.RegressionFit", rows, y.Len(), 0)
	}

	observed := make(plotter.XYs, rows)
	xs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		xs[i] = X.At(i, 0)
		observed[i] = plotter.XY{X: xs[i], Y: y.AtVec(i)}
	}

	// Predict over the sorted feature values so the fit renders as a
	// single left-to-right path.
	sort.Float64s(xs)
	grid := mat.NewDense(rows, 1, xs)
	pred, err := m.Predict(grid)
	if err != nil {
		return nil, errors.Wrap(err, "plotting: predict for fit line")
	}
	fit := make(plotter.XYs, rows)
	for i := 0; i < rows; i++ {
		fit[i] = plotter.XY{X: xs[i], Y: pred.At(i, 0)}
	}

	p := plot.New()
	p.Title.Text = "Regression Fit"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(observed)
	if err != nil {
		return nil, errors.Wrap(err, "plotting: scatter")
	}
	scatter.GlyphStyle.Color = observedColor
	scatter.GlyphStyle.Radius = vg.Points(2)

	line, err := plotter.NewLine(fit)
	if err != nil {
		return nil, errors.Wrap(err, "plotting: fit line")
	}
	line.LineStyle.Color = fitColor
	line.LineStyle.Width = vg.Points(1.5)

	p.Add(scatter, line)
	p.Legend.Add("observed", scatter)
	p.Legend.Add("fit", line)
	p.Legend.Top = true

	return p, nil
}

// ResidualsVsFitted plots residuals against fitted values with a
// horizontal reference line at zero.
func ResidualsVsFitted(fitted, residuals *mat.VecDense) (*plot.Plot, error) {
	if fitted == nil || residuals == nil {
		return nil, errors.NewValueError("plotting.ResidualsVsFitted", "inputs must not be nil")
	}
	n := fitted.Len()
	if n == 0 {
		return nil, errors.NewValueError("plotting.ResidualsVsFitted", "input must not be empty")
	}
	if residuals.Len() != n {
		return nil, errors.NewDimensionError("plotting.ResidualsVsFitted", n, residuals.Len(), 0)
	}

	pts := make(plotter.XYs, n)
	minX, maxX := fitted.AtVec(0), fitted.AtVec(0)
	for i := 0; i < n; i++ {
		x := fitted.AtVec(i)
		pts[i] = plotter.XY{X: x, Y: residuals.AtVec(i)}
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
	}

	p := plot.New()
	p.Title.Text = "Residuals vs Fitted"
	p.X.Label.Text = "fitted"
	p.Y.Label.Text = "residual"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "plotting: scatter")
	}
	scatter.GlyphStyle.Color = observedColor
	scatter.GlyphStyle.Radius = vg.Points(2)

	zero, err := plotter.NewLine(plotter.XYs{
		{X: minX, Y: 0},
		{X: maxX, Y: 0},
	})
	if err != nil {
		return nil, errors.Wrap(err, "plotting: zero line")
	}
	zero.LineStyle.Color = zeroLineColor
	zero.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	p.Add(scatter, zero)
	return p, nil
}

// ResidualHistogram plots the distribution of residuals over the given
// number of bins.
func ResidualHistogram(residuals *mat.VecDense, bins int) (*plot.Plot, error) {
	if residuals == nil {
		return nil, errors.NewValueError("plotting.ResidualHistogram", "input must not be nil")
	}
	if residuals.Len() == 0 {
		return nil, errors.NewValueError("plotting.ResidualHistogram", "input must not be empty")
	}
	if bins <= 0 {
		return nil, errors.NewValidationError("bins", "must be positive", bins)
	}

	values := make(plotter.Values, residuals.Len())
	for i := range values {
		values[i] = residuals.AtVec(i)
	}

	p := plot.New()
	p.Title.Text = "Residual Distribution"
	p.X.Label.Text = "residual"
	p.Y.Label.Text = "count"

	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return nil, errors.Wrap(err, "plotting: histogram")
	}
	hist.FillColor = observedColor

	p.Add(hist)
	return p, nil
}

// Save writes the plot to path. The extension selects the image format
// (.png, .svg, .pdf among others).
func Save(p *plot.Plot, path string) error {
	if p == nil {
		return errors.NewValueError("plotting.Save", "plot must not be nil")
	}
	if path == "" {
		return errors.NewValueError("plotting.Save", "path must not be empty")
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "plotting: save %s", path)
	}
	return nil
}
