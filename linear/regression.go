package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	mlcore "github.com/YuminosukeSato/mlcore"
	"github.com/YuminosukeSato/mlcore/core/linalg"
	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
	"github.com/YuminosukeSato/mlcore/pkg/log"
)

// conditionWarnThreshold を超える条件数のX^T Xに対しては
// IllConditionedWarningを発行する。学習自体は続行される。
const conditionWarnThreshold = 1e12

// LinearRegression は最小二乗法による線形回帰モデル。
// 正規方程式 β = (X^T X)^(-1) X^T y で係数を推定する。
// WithLRStats(true) で学習すると、標準誤差・t値・p値・F統計量などの
// 推測統計量を学習後に計算できる。
type LinearRegression struct {
	state *model.StateManager // 状態管理（コンポジション）

	// ハイパーパラメータ
	fitIntercept bool
	computeStats bool

	// 学習済みパラメータ
	betas         *mat.VecDense // 係数ベクトル（fitIntercept時は先頭が切片）
	intercept     float64
	nFeatures     int
	dof           int // 残差自由度 n - p
	numPredictors int

	// 推測統計量の計算に必要な学習時の状態（computeStats時のみ保持）
	design *mat.Dense // 切片列を含む計画行列
	yTrain *mat.VecDense
	xtxInv *mat.Dense // (X^T X)^(-1)

	logger log.Logger
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
		computeStats: false,
	}
	for _, opt := range opts {
		opt(lr)
	}
	lr.logger = log.NewEstimatorLogger("LinearRegression")
	return lr
}

// Fit はモデルを訓練データで学習させる。
// X^T X の可逆性は特異値分解で事前に検査し、特異な場合は
// ErrSingularMatrix を包むModelErrorを返す。条件数が
// conditionWarnThresholdを超える場合はIllConditionedWarningを発行する。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	// 入力の検証
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}

	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}

	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	// 計画行列を作成（fitIntercept時は先頭に1の列を追加）
	var design *mat.Dense
	if lr.fitIntercept {
		design = linalg.AddInterceptColumn(X)
	} else {
		design = mat.DenseCopyOf(X)
	}
	_, p := design.Dims()

	// 残差自由度 n - p が正でなければ推定できない
	dof := r - p
	if dof <= 0 {
		return errors.NewValidationError("degrees_of_freedom",
			"must be greater than 0; need more samples than design matrix columns", dof)
	}

	// 正規方程式を解く
	// β = (X^T X)^(-1) X^T y
	var xt mat.Dense
	xt.CloneFrom(design.T())

	var xtx mat.Dense
	xtx.Mul(&xt, design)

	// 特異値分解による可逆性の事前チェック
	invertible, err := linalg.IsInvertibleSVD(&xtx)
	if err != nil {
		return err
	}
	if !invertible {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	if cond, condErr := linalg.ConditionNumber(&xtx); condErr == nil && cond > conditionWarnThreshold {
		errors.Warn(errors.NewIllConditionedWarning("LinearRegression.Fit", cond, conditionWarnThreshold))
	}

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	// y を VecDense に変換
	yVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	var xty mat.VecDense
	xty.MulVec(&xt, yVec)

	betas := mat.NewVecDense(p, nil)
	betas.MulVec(&xtxInv, &xty)

	lr.betas = betas
	lr.nFeatures = c
	lr.dof = dof
	if lr.fitIntercept {
		lr.intercept = betas.AtVec(0)
		lr.numPredictors = p - 1
	} else {
		lr.intercept = 0
		lr.numPredictors = p
	}

	if lr.computeStats {
		lr.design = design
		lr.yTrain = yVec
		lr.xtxInv = &xtxInv
	} else {
		lr.design = nil
		lr.yTrain = nil
		lr.xtxInv = nil
	}

	// モデルを学習済み状態に設定
	lr.state.SetFitted()

	lr.logger.Debug("model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)

	return nil
}

// Predict は入力データに対する予測を行う。
// Xの列数が特徴量数と一致する場合は切片を内部で加算し、
// 係数ベクトルと同じ列数（切片列を含む計画行列）の場合は
// そのまま X β を計算する。
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	predictions := mat.NewDense(r, 1, nil)

	// すでに切片列を含む計画行列が渡された場合
	if lr.fitIntercept && c == lr.nFeatures+1 {
		for i := 0; i < r; i++ {
			pred := 0.0
			for j := 0; j < c; j++ {
				pred += X.At(i, j) * lr.betas.AtVec(j)
			}
			predictions.Set(i, 0, pred)
		}
		return predictions, nil
	}

	if c != lr.nFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.nFeatures, c, 1)
	}

	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	for i := 0; i < r; i++ {
		pred := lr.intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.betas.AtVec(j+offset)
		}
		predictions.Set(i, 0, pred)
	}

	return predictions, nil
}

// IsFitted はモデルが学習済みかどうかを返す
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Coef は学習された係数（切片を除く）のコピーを返す
func (lr *LinearRegression) Coef() []float64 {
	if lr.betas == nil {
		return nil
	}
	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	coef := make([]float64, lr.betas.Len()-offset)
	for i := range coef {
		coef[i] = lr.betas.AtVec(i + offset)
	}
	return coef
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	if !lr.state.IsFitted() {
		return 0
	}
	return lr.intercept
}

// Betas は切片を含む係数ベクトル全体のコピーを返す。
// fitIntercept時は先頭要素が切片。
func (lr *LinearRegression) Betas() []float64 {
	if lr.betas == nil {
		return nil
	}
	betas := make([]float64, lr.betas.Len())
	for i := range betas {
		betas[i] = lr.betas.AtVec(i)
	}
	return betas
}

// DegreesOfFreedom は残差自由度 n - p を返す
func (lr *LinearRegression) DegreesOfFreedom() int {
	return lr.dof
}

// NumPredictors は予測変数の数（切片を除く計画行列の列数）を返す
func (lr *LinearRegression) NumPredictors() int {
	return lr.numPredictors
}

// GetParams は学習されたパラメータをmapで返す。
// キーは beta_x_1 .. beta_x_k と intercept。
func (lr *LinearRegression) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for i, coef := range lr.Coef() {
		params[fmt.Sprintf("beta_x_%d", i+1)] = coef
	}
	if lr.fitIntercept {
		params["intercept"] = lr.intercept
	}
	return params
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	if !lr.state.IsFitted() {
		return 0, errors.NewNotFittedError("LinearRegression", "Score")
	}

	// 予測値を計算
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()

	// y の平均を計算
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	// 全変動 (TSS) と残差変動 (RSS) を計算
	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		yPredVal := yPred.At(i, 0)

		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += (yTrue - yPredVal) * (yTrue - yPredVal)
	}

	// R² = 1 - RSS/TSS
	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}

	return 1 - rss/tss, nil
}

// ExportWeights はモデルの重みをModelWeights形式でエクスポートする。
// チェックサムをMetadataに記録し、インポート時の破損検出に備える。
func (lr *LinearRegression) ExportWeights() (*model.ModelWeights, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "ExportWeights")
	}

	w := &model.ModelWeights{
		ModelType:    "LinearRegression",
		Version:      mlcore.Version,
		Coefficients: lr.Coef(),
		Intercept:    lr.intercept,
		Hyperparameters: map[string]interface{}{
			"fit_intercept": lr.fitIntercept,
			"compute_stats": lr.computeStats,
		},
		Metadata: map[string]interface{}{
			"n_features":         lr.nFeatures,
			"degrees_of_freedom": lr.dof,
		},
		IsFitted: true,
	}
	w.StampChecksum()
	return w, nil
}

// ImportWeights はModelWeightsからモデルの重みを復元する。
// モデル種別の一致とチェックサムを検証する。
// 学習データ由来の推測統計量はインポート後は利用できない。
func (lr *LinearRegression) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("LinearRegression.ImportWeights", "weights must not be nil")
	}
	if w.ModelType != "LinearRegression" {
		return errors.NewValueError("LinearRegression.ImportWeights",
			"model type mismatch: expected LinearRegression, got "+w.ModelType)
	}
	if err := w.Validate(); err != nil {
		return errors.Wrap(err, "invalid weights")
	}
	if err := w.VerifyChecksum(); err != nil {
		return errors.Wrap(err, "checksum verification failed")
	}

	if v, ok := w.Hyperparameters["fit_intercept"].(bool); ok {
		lr.fitIntercept = v
	}

	lr.nFeatures = len(w.Coefficients)
	lr.intercept = w.Intercept
	if !lr.fitIntercept {
		lr.intercept = 0
	}
	lr.numPredictors = lr.nFeatures
	lr.dof = 0

	p := lr.nFeatures
	if lr.fitIntercept {
		p++
	}
	betas := mat.NewVecDense(p, nil)
	offset := 0
	if lr.fitIntercept {
		betas.SetVec(0, w.Intercept)
		offset = 1
	}
	for i, coef := range w.Coefficients {
		betas.SetVec(i+offset, coef)
	}
	lr.betas = betas

	// インポートした重みでは学習時の計画行列を持たないため統計量は無効
	lr.design = nil
	lr.yTrain = nil
	lr.xtxInv = nil

	lr.state.SetFitted()
	return nil
}
