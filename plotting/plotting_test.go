package plotting

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/linear"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// fitLine trains a one-feature regression on y = 2x + 1.
func fitLine(t *testing.T) (*linear.LinearRegression, *mat.Dense, *mat.VecDense) {
	t.Helper()

	n := 12
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := float64(i)
		X.Set(i, 0, x)
		y.SetVec(i, 2*x+1)
	}

	m := linear.NewLinearRegression()
	yCol := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		yCol.Set(i, 0, y.AtVec(i))
	}
	if err := m.Fit(X, yCol); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return m, X, y
}

func TestRegressionFit(t *testing.T) {
	m, X, y := fitLine(t)

	p, err := RegressionFit(X, y, m)
	if err != nil {
		t.Fatalf("RegressionFit failed: %v", err)
	}
	if p == nil {
		t.Fatal("RegressionFit returned nil plot")
	}
	if p.Title.Text != "Regression Fit" {
		t.Errorf("title = %q", p.Title.Text)
	}

	path := filepath.Join(t.TempDir(), "fit.png")
	if err := Save(p, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("saved file is empty")
	}
}

func TestRegressionFitRejectsMultipleFeatures(t *testing.T) {
	m, _, y := fitLine(t)

	wide := mat.NewDense(12, 2, nil)
	_, err := RegressionFit(wide, y, m)
	if err == nil {
		t.Fatal("expected error for two feature columns")
	}
	var ve *errors.ValueError
	if !errors.As(err, &ve) {
		t.Errorf("error type = %T, want *errors.ValueError", err)
	}
}

func TestRegressionFitValidation(t *testing.T) {
	m, X, y := fitLine(t)

	if _, err := RegressionFit(nil, y, m); err == nil {
		t.Error("expected error for nil X")
	}
	if _, err := RegressionFit(X, y, nil); err == nil {
		t.Error("expected error for nil model")
	}

	short := mat.NewVecDense(3, nil)
	if _, err := RegressionFit(X, short, m); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestResidualsVsFitted(t *testing.T) {
	fitted := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	residuals := mat.NewVecDense(4, []float64{0.1, -0.2, 0.05, -0.1})

	p, err := ResidualsVsFitted(fitted, residuals)
	if err != nil {
		t.Fatalf("ResidualsVsFitted failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "residuals.png")
	if err := Save(p, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	short := mat.NewVecDense(2, nil)
	if _, err := ResidualsVsFitted(fitted, short); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if _, err := ResidualsVsFitted(nil, residuals); err == nil {
		t.Error("expected error for nil input")
	}
}

func TestResidualHistogram(t *testing.T) {
	residuals := mat.NewVecDense(8, []float64{-1, -0.5, -0.2, 0, 0.1, 0.3, 0.7, 1.2})

	p, err := ResidualHistogram(residuals, 4)
	if err != nil {
		t.Fatalf("ResidualHistogram failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "hist.png")
	if err := Save(p, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := ResidualHistogram(residuals, 0); err == nil {
		t.Error("expected error for zero bins")
	}
	var ve *errors.ValidationError
	_, err = ResidualHistogram(residuals, -3)
	if !errors.As(err, &ve) {
		t.Errorf("error type = %T, want *errors.ValidationError", err)
	}
	if _, err := ResidualHistogram(nil, 4); err == nil {
		t.Error("expected error for nil input")
	}
}

func TestSaveValidation(t *testing.T) {
	if err := Save(nil, "x.png"); err == nil {
		t.Error("expected error for nil plot")
	}

	fitted := mat.NewVecDense(2, []float64{1, 2})
	residuals := mat.NewVecDense(2, []float64{0.1, -0.1})
	p, err := ResidualsVsFitted(fitted, residuals)
	if err != nil {
		t.Fatalf("ResidualsVsFitted failed: %v", err)
	}
	if err := Save(p, ""); err == nil {
		t.Error("expected error for empty path")
	}
}
