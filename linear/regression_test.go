package linear

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

var (
	_ model.Regressor      = (*LinearRegression)(nil)
	_ model.Regressor      = (*Ridge)(nil)
	_ model.LinearModel    = (*LinearRegression)(nil)
	_ model.LinearModel    = (*Ridge)(nil)
	_ model.WeightExporter = (*LinearRegression)(nil)
)

// simpleLineData は y = 2 + 3x にわずかなノイズを加えたデータ
func simpleLineData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	y := mat.NewDense(10, 1, []float64{
		5.1, 7.8, 11.3, 13.9, 17.2, 19.7, 23.1, 25.8, 29.3, 31.9,
	})
	return X, y
}

func TestLinearRegressionExactRecovery(t *testing.T) {
	// ノイズなしの y = 3 + 2x は厳密に復元できる
	X := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	y := mat.NewDense(5, 1, []float64{5, 7, 9, 11, 13})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	const tol = 1e-8
	if got := lr.Intercept(); math.Abs(got-3.0) > tol {
		t.Errorf("Intercept = %v, want 3.0", got)
	}
	coef := lr.Coef()
	if len(coef) != 1 {
		t.Fatalf("Coef length = %d, want 1", len(coef))
	}
	if math.Abs(coef[0]-2.0) > tol {
		t.Errorf("Coef[0] = %v, want 2.0", coef[0])
	}

	pred, err := lr.Predict(mat.NewDense(2, 1, []float64{6, 7}))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if math.Abs(pred.At(0, 0)-15.0) > tol || math.Abs(pred.At(1, 0)-17.0) > tol {
		t.Errorf("Predict = [%v, %v], want [15, 17]", pred.At(0, 0), pred.At(1, 0))
	}
}

func TestLinearRegressionMultiFeatureRecovery(t *testing.T) {
	// y = 1 + 2*x1 - 3*x2 をノイズなしで復元する
	X := mat.NewDense(6, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
		2, 1,
		3, 5,
		-1, 2,
	})
	y := mat.NewDense(6, 1, nil)
	for i := 0; i < 6; i++ {
		y.Set(i, 0, 1+2*X.At(i, 0)-3*X.At(i, 1))
	}

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	const tol = 1e-8
	wantCoef := []float64{2, -3}
	for i, want := range wantCoef {
		if got := lr.Coef()[i]; math.Abs(got-want) > tol {
			t.Errorf("Coef[%d] = %v, want %v", i, got, want)
		}
	}
	if got := lr.Intercept(); math.Abs(got-1.0) > tol {
		t.Errorf("Intercept = %v, want 1.0", got)
	}

	if got, want := lr.DegreesOfFreedom(), 3; got != want {
		t.Errorf("DegreesOfFreedom = %d, want %d", got, want)
	}
	if got, want := lr.NumPredictors(), 2; got != want {
		t.Errorf("NumPredictors = %d, want %d", got, want)
	}
}

func TestLinearRegressionWithoutIntercept(t *testing.T) {
	// 原点を通る y = 2x
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})

	lr := NewLinearRegression(WithLRFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	const tol = 1e-8
	if got := lr.Intercept(); got != 0 {
		t.Errorf("Intercept = %v, want 0", got)
	}
	if got := lr.Coef()[0]; math.Abs(got-2.0) > tol {
		t.Errorf("Coef[0] = %v, want 2.0", got)
	}
	if got, want := lr.DegreesOfFreedom(), 2; got != want {
		t.Errorf("DegreesOfFreedom = %d, want %d", got, want)
	}
	if got, want := lr.NumPredictors(), 1; got != want {
		t.Errorf("NumPredictors = %d, want %d", got, want)
	}
}

func TestLinearRegressionFitValidation(t *testing.T) {
	valid := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	validY := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	tests := []struct {
		name    string
		x       mat.Matrix
		y       mat.Matrix
		checkAs func(error) bool
	}{
		{
			name: "empty data",
			x:    &mat.Dense{},
			y:    validY,
			checkAs: func(err error) bool {
				return errors.Is(err, errors.ErrEmptyData)
			},
		},
		{
			name: "row count mismatch",
			x:    valid,
			y:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			checkAs: func(err error) bool {
				var dimErr *errors.DimensionError
				return errors.As(err, &dimErr)
			},
		},
		{
			name: "y not a column vector",
			x:    valid,
			y:    mat.NewDense(4, 2, nil),
			checkAs: func(err error) bool {
				var valErr *errors.ValueError
				return errors.As(err, &valErr)
			},
		},
		{
			name: "not enough samples for degrees of freedom",
			x:    mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 7, 2, 8, 1}),
			y:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			checkAs: func(err error) bool {
				var valErr *errors.ValidationError
				return errors.As(err, &valErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			err := lr.Fit(tt.x, tt.y)
			if err == nil {
				t.Fatal("Fit should have failed")
			}
			if !tt.checkAs(err) {
				t.Errorf("unexpected error type: %v", err)
			}
		})
	}
}

func TestLinearRegressionSingularMatrix(t *testing.T) {
	// 2列目が1列目の2倍（完全な多重共線性）
	X := mat.NewDense(6, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
		5, 10,
		6, 12,
	})
	y := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})

	lr := NewLinearRegression()
	err := lr.Fit(X, y)
	if err == nil {
		t.Fatal("Fit should have failed on a singular design matrix")
	}
	if !errors.Is(err, errors.ErrSingularMatrix) {
		t.Errorf("error should wrap ErrSingularMatrix: %v", err)
	}
}

func TestLinearRegressionPredictBeforeFit(t *testing.T) {
	lr := NewLinearRegression()
	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))
	if err == nil {
		t.Fatal("Predict should fail on an unfitted model")
	}
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("error should be NotFittedError: %v", err)
	}
}

func TestLinearRegressionPredictDimensions(t *testing.T) {
	X, y := simpleLineData()
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// 特徴量数+1列（切片列を含む計画行列）はそのまま Xβ を計算する
	design := mat.NewDense(2, 2, []float64{
		1, 6,
		1, 7,
	})
	fromDesign, err := lr.Predict(design)
	if err != nil {
		t.Fatalf("Predict with design matrix failed: %v", err)
	}
	raw := mat.NewDense(2, 1, []float64{6, 7})
	fromRaw, err := lr.Predict(raw)
	if err != nil {
		t.Fatalf("Predict with raw matrix failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if math.Abs(fromDesign.At(i, 0)-fromRaw.At(i, 0)) > 1e-12 {
			t.Errorf("row %d: design path %v != raw path %v", i, fromDesign.At(i, 0), fromRaw.At(i, 0))
		}
	}

	// 不正な列数
	if _, err := lr.Predict(mat.NewDense(2, 3, nil)); err == nil {
		t.Error("Predict should fail on a width-3 matrix for a single-feature model")
	}
}

func TestLinearRegressionScore(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	y := mat.NewDense(5, 1, []float64{5, 7, 9, 11, 13})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if math.Abs(score-1.0) > 1e-10 {
		t.Errorf("Score = %v, want 1.0", score)
	}

	// 全ての目的変数が同じ値の場合は全平方和が0になる
	constY := mat.NewDense(5, 1, []float64{3, 3, 3, 3, 3})
	if _, err := lr.Score(X, constY); err == nil {
		t.Error("Score should fail when the total sum of squares is zero")
	}
}

func TestLinearRegressionGetParams(t *testing.T) {
	X, y := simpleLineData()
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	params := lr.GetParams()
	if _, ok := params["beta_x_1"]; !ok {
		t.Error("params should contain beta_x_1")
	}
	if _, ok := params["intercept"]; !ok {
		t.Error("params should contain intercept")
	}
	if got := params["beta_x_1"].(float64); math.Abs(got-lr.Coef()[0]) > 1e-15 {
		t.Errorf("beta_x_1 = %v, want %v", got, lr.Coef()[0])
	}
}

func TestLinearRegressionBetas(t *testing.T) {
	X, y := simpleLineData()
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	betas := lr.Betas()
	if len(betas) != 2 {
		t.Fatalf("Betas length = %d, want 2", len(betas))
	}
	if betas[0] != lr.Intercept() {
		t.Errorf("Betas[0] = %v, want intercept %v", betas[0], lr.Intercept())
	}
	if betas[1] != lr.Coef()[0] {
		t.Errorf("Betas[1] = %v, want coef %v", betas[1], lr.Coef()[0])
	}
}

func TestLinearRegressionWeightsRoundTrip(t *testing.T) {
	X, y := simpleLineData()
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	weights, err := lr.ExportWeights()
	if err != nil {
		t.Fatalf("ExportWeights failed: %v", err)
	}
	if weights.ModelType != "LinearRegression" {
		t.Errorf("ModelType = %q, want LinearRegression", weights.ModelType)
	}

	restored := NewLinearRegression()
	if err := restored.ImportWeights(weights); err != nil {
		t.Fatalf("ImportWeights failed: %v", err)
	}

	testX := mat.NewDense(3, 1, []float64{2.5, 11, -4})
	wantPred, err := lr.Predict(testX)
	if err != nil {
		t.Fatalf("Predict on original failed: %v", err)
	}
	gotPred, err := restored.Predict(testX)
	if err != nil {
		t.Fatalf("Predict on restored failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if wantPred.At(i, 0) != gotPred.At(i, 0) {
			t.Errorf("row %d: restored prediction %v != original %v", i, gotPred.At(i, 0), wantPred.At(i, 0))
		}
	}
}

func TestLinearRegressionWeightsFileRoundTrip(t *testing.T) {
	X, y := simpleLineData()
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	weights, err := lr.ExportWeights()
	if err != nil {
		t.Fatalf("ExportWeights failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := weights.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := loadAndImport(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if math.Abs(loaded.Intercept()-lr.Intercept()) > 1e-15 {
		t.Errorf("Intercept = %v, want %v", loaded.Intercept(), lr.Intercept())
	}
}

func TestLinearRegressionImportRejectsTamperedWeights(t *testing.T) {
	X, y := simpleLineData()
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	weights, err := lr.ExportWeights()
	if err != nil {
		t.Fatalf("ExportWeights failed: %v", err)
	}
	weights.Coefficients[0] += 0.5

	restored := NewLinearRegression()
	if err := restored.ImportWeights(weights); err == nil {
		t.Error("ImportWeights should reject tampered coefficients")
	}
}

func TestLinearRegressionImportRejectsWrongModelType(t *testing.T) {
	X, y := simpleLineData()
	rg := NewRidge()
	if err := rg.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	weights, err := rg.ExportWeights()
	if err != nil {
		t.Fatalf("ExportWeights failed: %v", err)
	}

	lr := NewLinearRegression()
	if err := lr.ImportWeights(weights); err == nil {
		t.Error("ImportWeights should reject weights from a different model type")
	}
}

// loadAndImport はファイルから重みを読み込んで新しいモデルに復元する
func loadAndImport(path string) (*LinearRegression, error) {
	weights, err := model.LoadWeightsFromFile(path)
	if err != nil {
		return nil, err
	}
	lr := NewLinearRegression()
	if err := lr.ImportWeights(weights); err != nil {
		return nil, err
	}
	return lr, nil
}
