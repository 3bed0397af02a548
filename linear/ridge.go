package linear

import (
	"gonum.org/v1/gonum/mat"

	mlcore "github.com/YuminosukeSato/mlcore"
	"github.com/YuminosukeSato/mlcore/core/linalg"
	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
	"github.com/YuminosukeSato/mlcore/pkg/log"
)

// Ridge はL2正則化付き線形回帰（リッジ回帰）。
// β = (X^T X + αP)^(-1) X^T y を解く。Pは単位行列だが、
// 切片に対応する成分は0とし、切片は正則化しない。
type Ridge struct {
	state *model.StateManager

	// ハイパーパラメータ
	alpha        float64
	fitIntercept bool

	// 学習済みパラメータ
	betas     *mat.VecDense
	intercept float64
	nFeatures int

	logger log.Logger
}

// RidgeOption はRidgeの設定オプション
type RidgeOption func(*Ridge)

// WithRidgeAlpha は正則化の強さαを設定する（デフォルト: 1.0）
func WithRidgeAlpha(alpha float64) RidgeOption {
	return func(r *Ridge) {
		r.alpha = alpha
	}
}

// WithRidgeFitIntercept は切片を学習するかどうかを設定する（デフォルト: true）
func WithRidgeFitIntercept(fit bool) RidgeOption {
	return func(r *Ridge) {
		r.fitIntercept = fit
	}
}

// NewRidge は新しいリッジ回帰モデルを作成する
func NewRidge(opts ...RidgeOption) *Ridge {
	r := &Ridge{
		state:        model.NewStateManager(),
		alpha:        1.0,
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.NewEstimatorLogger("Ridge")
	return r
}

// Fit はモデルを訓練データで学習させる
func (rg *Ridge) Fit(X, y mat.Matrix) error {
	n, c := X.Dims()
	ry, cy := y.Dims()

	if n == 0 || c == 0 {
		return errors.NewModelError("Ridge.Fit", "empty data", errors.ErrEmptyData)
	}

	if ry != n {
		return errors.NewDimensionError("Ridge.Fit", n, ry, 0)
	}

	if cy != 1 {
		return errors.NewValueError("Ridge.Fit", "y must be a column vector")
	}

	if rg.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", rg.alpha)
	}

	var design *mat.Dense
	if rg.fitIntercept {
		design = linalg.AddInterceptColumn(X)
	} else {
		design = mat.DenseCopyOf(X)
	}
	_, p := design.Dims()

	var xt mat.Dense
	xt.CloneFrom(design.T())

	var xtx mat.Dense
	xtx.Mul(&xt, design)

	// 正則化項 αP を加算する。切片成分は正則化しない。
	start := 0
	if rg.fitIntercept {
		start = 1
	}
	for i := start; i < p; i++ {
		xtx.Set(i, i, xtx.At(i, i)+rg.alpha)
	}

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return errors.NewModelError("Ridge.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	yVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	var xty mat.VecDense
	xty.MulVec(&xt, yVec)

	betas := mat.NewVecDense(p, nil)
	betas.MulVec(&xtxInv, &xty)

	rg.betas = betas
	rg.nFeatures = c
	if rg.fitIntercept {
		rg.intercept = betas.AtVec(0)
	} else {
		rg.intercept = 0
	}

	rg.state.SetFitted()

	rg.logger.Debug("model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, c,
		log.RegularizationKey, rg.alpha,
	)

	return nil
}

// Predict は入力データに対する予測を行う
func (rg *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rg.state.IsFitted() {
		return nil, errors.NewNotFittedError("Ridge", "Predict")
	}

	n, c := X.Dims()
	if c != rg.nFeatures {
		return nil, errors.NewDimensionError("Ridge.Predict", rg.nFeatures, c, 1)
	}

	offset := 0
	if rg.fitIntercept {
		offset = 1
	}

	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		pred := rg.intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * rg.betas.AtVec(j+offset)
		}
		predictions.Set(i, 0, pred)
	}

	return predictions, nil
}

// IsFitted はモデルが学習済みかどうかを返す
func (rg *Ridge) IsFitted() bool {
	return rg.state.IsFitted()
}

// Coef は学習された係数（切片を除く）のコピーを返す
func (rg *Ridge) Coef() []float64 {
	if rg.betas == nil {
		return nil
	}
	offset := 0
	if rg.fitIntercept {
		offset = 1
	}
	coef := make([]float64, rg.betas.Len()-offset)
	for i := range coef {
		coef[i] = rg.betas.AtVec(i + offset)
	}
	return coef
}

// Intercept は学習された切片を返す
func (rg *Ridge) Intercept() float64 {
	if !rg.state.IsFitted() {
		return 0
	}
	return rg.intercept
}

// Alpha は正則化の強さを返す
func (rg *Ridge) Alpha() float64 {
	return rg.alpha
}

// Score はモデルの決定係数（R²）を計算する
func (rg *Ridge) Score(X, y mat.Matrix) (float64, error) {
	if !rg.state.IsFitted() {
		return 0, errors.NewNotFittedError("Ridge", "Score")
	}

	yPred, err := rg.Predict(X)
	if err != nil {
		return 0, err
	}

	n, _ := y.Dims()
	var yMean float64
	for i := 0; i < n; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		yTrue := y.At(i, 0)
		d := yTrue - yMean
		e := yTrue - yPred.At(i, 0)
		tss += d * d
		rss += e * e
	}

	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}

	return 1 - rss/tss, nil
}

// ExportWeights はモデルの重みをModelWeights形式でエクスポートする
func (rg *Ridge) ExportWeights() (*model.ModelWeights, error) {
	if !rg.state.IsFitted() {
		return nil, errors.NewNotFittedError("Ridge", "ExportWeights")
	}

	w := &model.ModelWeights{
		ModelType:    "Ridge",
		Version:      mlcore.Version,
		Coefficients: rg.Coef(),
		Intercept:    rg.intercept,
		Hyperparameters: map[string]interface{}{
			"alpha":         rg.alpha,
			"fit_intercept": rg.fitIntercept,
		},
		Metadata: map[string]interface{}{
			"n_features": rg.nFeatures,
		},
		IsFitted: true,
	}
	w.StampChecksum()
	return w, nil
}

// ImportWeights はModelWeightsからモデルの重みを復元する
func (rg *Ridge) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("Ridge.ImportWeights", "weights must not be nil")
	}
	if w.ModelType != "Ridge" {
		return errors.NewValueError("Ridge.ImportWeights",
			"model type mismatch: expected Ridge, got "+w.ModelType)
	}
	if err := w.Validate(); err != nil {
		return errors.Wrap(err, "invalid weights")
	}
	if err := w.VerifyChecksum(); err != nil {
		return errors.Wrap(err, "checksum verification failed")
	}

	if v, ok := w.Hyperparameters["alpha"].(float64); ok {
		rg.alpha = v
	}
	if v, ok := w.Hyperparameters["fit_intercept"].(bool); ok {
		rg.fitIntercept = v
	}

	rg.nFeatures = len(w.Coefficients)
	rg.intercept = w.Intercept
	if !rg.fitIntercept {
		rg.intercept = 0
	}

	p := rg.nFeatures
	if rg.fitIntercept {
		p++
	}
	betas := mat.NewVecDense(p, nil)
	offset := 0
	if rg.fitIntercept {
		betas.SetVec(0, rg.intercept)
		offset = 1
	}
	for i, coef := range w.Coefficients {
		betas.SetVec(i+offset, coef)
	}
	rg.betas = betas

	rg.state.SetFitted()
	return nil
}
