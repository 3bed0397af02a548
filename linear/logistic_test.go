package linear

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

var _ model.Classifier = (*LogisticRegression)(nil)

// separableData は1次元で線形分離可能な2クラスデータ
func separableData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 1, []float64{-3, -2.5, -2, -1.5, 1.5, 2, 2.5, 3})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

// threeClusterData は2次元で well-separated な3クラスデータ
func threeClusterData() (*mat.Dense, *mat.Dense) {
	points := []float64{
		0, 0, 0.2, 0.1, -0.1, 0.2, 0.1, -0.2, 0.2, -0.1, // クラス0: 原点付近
		5, 5, 5.2, 5.1, 4.9, 5.2, 5.1, 4.8, 4.8, 4.9, // クラス1: (5,5)付近
		0, 5, 0.2, 5.1, -0.1, 5.2, 0.1, 4.8, -0.2, 4.9, // クラス2: (0,5)付近
	}
	labels := []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2}
	return mat.NewDense(15, 2, points), mat.NewDense(15, 1, labels)
}

func TestLogisticRegressionBinary(t *testing.T) {
	X, y := separableData()

	lr := NewLogisticRegression(WithLRRandomState(42), WithLRMaxIter(1000))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score < 0.95 {
		t.Errorf("Score = %v, want >= 0.95 on separable data", score)
	}

	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		got := pred.At(i, 0)
		if got != 0 && got != 1 {
			t.Errorf("prediction %v is not one of the class labels", got)
		}
	}
}

func TestLogisticRegressionPredictProba(t *testing.T) {
	X, y := separableData()

	lr := NewLogisticRegression(WithLRRandomState(42), WithLRMaxIter(1000))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	probas, err := lr.PredictProba(mat.NewDense(2, 1, []float64{3, -3}))
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	// 各行の確率は1に正規化される
	for i := 0; i < 2; i++ {
		sum := probas.At(i, 0) + probas.At(i, 1)
		if math.Abs(sum-1.0) > 1e-12 {
			t.Errorf("row %d probabilities sum to %v, want 1", i, sum)
		}
	}

	// x=3 はクラス1、x=-3 はクラス0に寄る
	if p := probas.At(0, 1); p < 0.6 {
		t.Errorf("P(class=1 | x=3) = %v, want >= 0.6", p)
	}
	if p := probas.At(1, 1); p > 0.4 {
		t.Errorf("P(class=1 | x=-3) = %v, want <= 0.4", p)
	}
}

func TestLogisticRegressionMulticlass(t *testing.T) {
	X, y := threeClusterData()

	lr := NewLogisticRegression(WithLRRandomState(7), WithLRMaxIter(500))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if got := lr.Classes(); len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("Classes = %v, want [0 1 2]", got)
	}

	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score < 0.9 {
		t.Errorf("Score = %v, want >= 0.9 on well-separated clusters", score)
	}

	// ソフトマックス確率は正規化され、argmaxはPredictと一致する
	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := 0; i < 15; i++ {
		sum := 0.0
		best, bestP := 0, -1.0
		for j := 0; j < 3; j++ {
			p := probas.At(i, j)
			sum += p
			if p > bestP {
				bestP = p
				best = j
			}
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("row %d probabilities sum to %v, want 1", i, sum)
		}
		if got := int(pred.At(i, 0)); got != lr.Classes()[best] {
			t.Errorf("row %d: Predict = %d, argmax proba = %d", i, got, lr.Classes()[best])
		}
	}
}

func TestLogisticRegressionClassesSorted(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{5, 1, 3, 5, 1, 3})

	lr := NewLogisticRegression(WithLRRandomState(0), WithLRMaxIter(10))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	got := lr.Classes()
	want := []int{1, 3, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Classes = %v, want %v", got, want)
			break
		}
	}
}

func TestLogisticRegressionConvergenceWarning(t *testing.T) {
	var captured []error
	errors.SetWarningHandler(func(w error) {
		captured = append(captured, w)
	})
	defer errors.SetWarningHandler(nil)

	X, y := separableData()
	lr := NewLogisticRegression(WithLRRandomState(42), WithLRMaxIter(2))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	found := false
	for _, w := range captured {
		var convWarn *errors.ConvergenceWarning
		if errors.As(w, &convWarn) {
			found = true
			if convWarn.Iterations != 2 {
				t.Errorf("warning iterations = %d, want 2", convWarn.Iterations)
			}
		}
	}
	if !found {
		t.Error("expected a ConvergenceWarning with max_iter=2")
	}

	if nIter := lr.NIter(); len(nIter) != 1 || nIter[0] != 2 {
		t.Errorf("NIter = %v, want [2]", nIter)
	}
}

func TestLogisticRegressionDeterministicWithSeed(t *testing.T) {
	X, y := separableData()

	fit := func() *LogisticRegression {
		lr := NewLogisticRegression(WithLRRandomState(123), WithLRMaxIter(50))
		if err := lr.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		return lr
	}

	a, b := fit(), fit()
	if len(a.coef[0]) != len(b.coef[0]) {
		t.Fatal("coefficient lengths differ")
	}
	for j := range a.coef[0] {
		if a.coef[0][j] != b.coef[0][j] {
			t.Errorf("coef[%d]: %v != %v with the same seed", j, a.coef[0][j], b.coef[0][j])
		}
	}
	if a.intercept[0] != b.intercept[0] {
		t.Errorf("intercepts differ with the same seed: %v != %v", a.intercept[0], b.intercept[0])
	}
}

func TestLogisticRegressionValidation(t *testing.T) {
	X, y := separableData()

	tests := []struct {
		name string
		lr   *LogisticRegression
		x    mat.Matrix
		y    mat.Matrix
	}{
		{"empty data", NewLogisticRegression(), &mat.Dense{}, y},
		{"row mismatch", NewLogisticRegression(), X, mat.NewDense(3, 1, nil)},
		{"y not column", NewLogisticRegression(), X, mat.NewDense(8, 2, nil)},
		{"invalid penalty", NewLogisticRegression(WithLRPenalty("l1")), X, y},
		{"non-positive C", NewLogisticRegression(WithLRC(0)), X, y},
		{
			"single class",
			NewLogisticRegression(),
			mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			mat.NewDense(4, 1, []float64{1, 1, 1, 1}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.lr.Fit(tt.x, tt.y); err == nil {
				t.Error("Fit should have failed")
			}
		})
	}
}

func TestLogisticRegressionNotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(1, 1, []float64{1})

	var notFitted *errors.NotFittedError

	if _, err := lr.Predict(X); !errors.As(err, &notFitted) {
		t.Errorf("Predict should return NotFittedError, got: %v", err)
	}
	if _, err := lr.PredictProba(X); !errors.As(err, &notFitted) {
		t.Errorf("PredictProba should return NotFittedError, got: %v", err)
	}
	if _, err := lr.Score(X, X); !errors.As(err, &notFitted) {
		t.Errorf("Score should return NotFittedError, got: %v", err)
	}
}

func TestLogisticRegressionWeightsRoundTrip(t *testing.T) {
	X, y := separableData()
	lr := NewLogisticRegression(WithLRRandomState(42), WithLRMaxIter(1000))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	weights, err := lr.ExportWeights()
	if err != nil {
		t.Fatalf("ExportWeights failed: %v", err)
	}

	// JSONファイル経由で復元する（メタデータの型変換も検証される）
	path := filepath.Join(t.TempDir(), "logistic.json")
	if err := weights.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	loaded, err := model.LoadWeightsFromFile(path)
	if err != nil {
		t.Fatalf("LoadWeightsFromFile failed: %v", err)
	}

	restored := NewLogisticRegression()
	if err := restored.ImportWeights(loaded); err != nil {
		t.Fatalf("ImportWeights failed: %v", err)
	}

	wantPred, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Predict on original failed: %v", err)
	}
	gotPred, err := restored.Predict(X)
	if err != nil {
		t.Fatalf("Predict on restored failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		if wantPred.At(i, 0) != gotPred.At(i, 0) {
			t.Errorf("row %d: restored prediction %v != original %v",
				i, gotPred.At(i, 0), wantPred.At(i, 0))
		}
	}
}

func TestLogisticRegressionExportMulticlassUnsupported(t *testing.T) {
	X, y := threeClusterData()
	lr := NewLogisticRegression(WithLRRandomState(7), WithLRMaxIter(50))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if _, err := lr.ExportWeights(); err == nil {
		t.Error("ExportWeights should fail for multiclass models")
	}
}
