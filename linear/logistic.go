package linear

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	mlcore "github.com/YuminosukeSato/mlcore"
	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
	"github.com/YuminosukeSato/mlcore/pkg/log"
)

// LogisticRegression はロジスティック回帰による分類器。
// 二値分類はシグモイド、他クラス分類はone-vs-restで学習する。
// 最適化は勾配降下法で、学習率は反復回数に応じて減衰する。
type LogisticRegression struct {
	state *model.StateManager

	// ハイパーパラメータ
	penalty      string  // 正則化の種類: "l2", "none"
	c            float64 // 正則化強度の逆数（小さいほど強い正則化）
	fitIntercept bool
	maxIter      int
	tol          float64
	randomState  int64

	// 学習済みパラメータ
	coef      [][]float64 // クラスごとの係数（二値分類は1行）
	intercept []float64
	classes   []int
	nClasses  int
	nFeatures int
	nIter     []int // クラスごとの実際の反復回数

	rng    *rand.Rand
	logger log.Logger
}

// LogisticRegressionOption はLogisticRegressionの設定オプション
type LogisticRegressionOption func(*LogisticRegression)

// WithLRPenalty は正則化の種類を設定する（"l2" または "none"、デフォルト: "l2"）
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC は正則化強度の逆数Cを設定する（デフォルト: 1.0）
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.c = c
	}
}

// WithLogisticFitIntercept は切片を学習するかどうかを設定する（デフォルト: true）
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter は勾配降下法の最大反復回数を設定する（デフォルト: 100）
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol は収束判定の許容誤差を設定する（デフォルト: 1e-4）
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState は乱数シードを設定する。負の値で非決定的になる。
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// NewLogisticRegression は新しいロジスティック回帰分類器を作成する
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		c:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
		randomState:  -1,
	}
	for _, opt := range opts {
		opt(lr)
	}

	if lr.randomState >= 0 {
		lr.rng = rand.New(rand.NewSource(lr.randomState))
	} else {
		lr.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	lr.logger = log.NewEstimatorLogger("LogisticRegression")
	return lr
}

// Fit はモデルを訓練データで学習させる。
// 収束しなかったクラスがある場合はConvergenceWarningを発行する。
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	n, c := X.Dims()
	ry, cy := y.Dims()

	if n == 0 || c == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}

	if ry != n {
		return errors.NewDimensionError("LogisticRegression.Fit", n, ry, 0)
	}

	if cy != 1 {
		return errors.NewValueError("LogisticRegression.Fit", "y must be a column vector")
	}

	if lr.penalty != "l2" && lr.penalty != "none" {
		return errors.NewValidationError("penalty", "must be 'l2' or 'none'", lr.penalty)
	}

	if lr.c <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.c)
	}

	lr.extractClasses(y)
	if lr.nClasses < 2 {
		return errors.NewValidationError("y", "needs samples of at least 2 classes", lr.nClasses)
	}

	lr.nFeatures = c
	lr.initializeWeights(c)

	converged := true
	if lr.nClasses == 2 {
		// 二値分類: classes[1]を陽性クラスとして1つの分類器を学習
		yBinary := lr.binaryTargets(y, lr.classes[1])
		converged = lr.gradientDescent(X, yBinary, 0)
	} else {
		// one-vs-rest: クラスごとに二値分類器を学習
		for classIdx, class := range lr.classes {
			yBinary := lr.binaryTargets(y, class)
			if !lr.gradientDescent(X, yBinary, classIdx) {
				converged = false
			}
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter,
			"gradient descent did not converge; consider increasing max_iter or loosening tol"))
	}

	lr.state.SetFitted()

	lr.logger.Debug("model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, c,
		"n_classes", lr.nClasses,
	)

	return nil
}

// extractClasses はユニークなクラスラベルを昇順で抽出する
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)

	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	lr.classes = make([]int, 0, len(classMap))
	for class := range classMap {
		lr.classes = append(lr.classes, class)
	}
	sort.Ints(lr.classes)

	lr.nClasses = len(lr.classes)
}

// binaryTargets は指定クラスを1、それ以外を0とする二値ラベルを作成する
func (lr *LogisticRegression) binaryTargets(y mat.Matrix, positive int) []float64 {
	rows, _ := y.Dims()
	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		if int(y.At(i, 0)) == positive {
			targets[i] = 1.0
		}
	}
	return targets
}

// initializeWeights は重みを小さな乱数で初期化する
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	rows := 1
	if lr.nClasses > 2 {
		rows = lr.nClasses
	}

	lr.coef = make([][]float64, rows)
	for i := range lr.coef {
		lr.coef[i] = make([]float64, nFeatures)
		for j := range lr.coef[i] {
			lr.coef[i][j] = lr.rng.NormFloat64() * 0.01
		}
	}
	lr.intercept = make([]float64, rows)
	lr.nIter = make([]int, rows)
}

// gradientDescent は二値ラベルに対して勾配降下法で重みを学習する。
// 勾配の最大絶対値がtolを下回った時点で収束とみなしtrueを返す。
func (lr *LogisticRegression) gradientDescent(X mat.Matrix, yBinary []float64, classIdx int) bool {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef[classIdx]
	intercept := &lr.intercept[classIdx]

	// 反復回数に応じて減衰する学習率
	const baseLearningRate = 1.0

	for iter := 0; iter < lr.maxIter; iter++ {
		gradWeights := make([]float64, nFeatures)
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - yBinary[i]

			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		// L2正則化の勾配を加算（切片は正則化しない）
		if lr.penalty == "l2" {
			lambda := 1.0 / lr.c
			for j := range weights {
				gradWeights[j] += lambda * weights[j]
			}
		}

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))

		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			*intercept -= learningRate * gradIntercept
		}

		lr.nIter[classIdx] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		if !lr.fitIntercept {
			maxGrad = 0
		}
		for _, g := range gradWeights {
			if math.Abs(g) > maxGrad {
				maxGrad = math.Abs(g)
			}
		}
		if maxGrad < lr.tol {
			return true
		}
	}

	return false
}

// decisionScore はクラスclassIdxに対する線形スコアを計算する
func (lr *LogisticRegression) decisionScore(X mat.Matrix, row, classIdx int) float64 {
	z := lr.intercept[classIdx]
	for j := 0; j < lr.nFeatures; j++ {
		z += X.At(row, j) * lr.coef[classIdx][j]
	}
	return z
}

// Predict は入力データのクラスラベルを予測する
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "Predict")
	}

	n, c := X.Dims()
	if c != lr.nFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.Predict", lr.nFeatures, c, 1)
	}

	predictions := mat.NewDense(n, 1, nil)

	if lr.nClasses == 2 {
		for i := 0; i < n; i++ {
			if sigmoid(lr.decisionScore(X, i, 0)) >= 0.5 {
				predictions.Set(i, 0, float64(lr.classes[1]))
			} else {
				predictions.Set(i, 0, float64(lr.classes[0]))
			}
		}
		return predictions, nil
	}

	for i := 0; i < n; i++ {
		maxScore := math.Inf(-1)
		bestClass := 0
		for classIdx := 0; classIdx < lr.nClasses; classIdx++ {
			if score := lr.decisionScore(X, i, classIdx); score > maxScore {
				maxScore = score
				bestClass = classIdx
			}
		}
		predictions.Set(i, 0, float64(lr.classes[bestClass]))
	}

	return predictions, nil
}

// PredictProba はクラスごとの所属確率を返す。
// 行はサンプル、列はClasses()の順に対応する。
// 他クラス分類ではLogSumExpによる数値安定なソフトマックスを使う。
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}

	n, c := X.Dims()
	if c != lr.nFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", lr.nFeatures, c, 1)
	}

	probas := mat.NewDense(n, lr.nClasses, nil)

	if lr.nClasses == 2 {
		for i := 0; i < n; i++ {
			p1 := sigmoid(lr.decisionScore(X, i, 0))
			probas.Set(i, 0, 1.0-p1)
			probas.Set(i, 1, p1)
		}
		return probas, nil
	}

	scores := make([]float64, lr.nClasses)
	for i := 0; i < n; i++ {
		for classIdx := 0; classIdx < lr.nClasses; classIdx++ {
			scores[classIdx] = lr.decisionScore(X, i, classIdx)
		}
		logZ := errors.LogSumExp(scores)
		for classIdx := 0; classIdx < lr.nClasses; classIdx++ {
			probas.Set(i, classIdx, errors.StabilizeExp(scores[classIdx]-logZ))
		}
	}

	return probas, nil
}

// IsFitted はモデルが学習済みかどうかを返す
func (lr *LogisticRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Classes は学習データに現れたクラスラベルを昇順で返す
func (lr *LogisticRegression) Classes() []int {
	classes := make([]int, len(lr.classes))
	copy(classes, lr.classes)
	return classes
}

// Coef はクラスごとの係数行列のコピーを返す（二値分類は1行）
func (lr *LogisticRegression) Coef() [][]float64 {
	coef := make([][]float64, len(lr.coef))
	for i, row := range lr.coef {
		coef[i] = make([]float64, len(row))
		copy(coef[i], row)
	}
	return coef
}

// Intercepts はクラスごとの切片のコピーを返す（二値分類は1要素）
func (lr *LogisticRegression) Intercepts() []float64 {
	intercepts := make([]float64, len(lr.intercept))
	copy(intercepts, lr.intercept)
	return intercepts
}

// NIter はクラスごとの勾配降下法の実際の反復回数を返す
func (lr *LogisticRegression) NIter() []int {
	nIter := make([]int, len(lr.nIter))
	copy(nIter, lr.nIter)
	return nIter
}

// Score はテストデータに対する正解率を返す
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	if !lr.state.IsFitted() {
		return 0, errors.NewNotFittedError("LogisticRegression", "Score")
	}

	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	n, _ := y.Dims()
	if n == 0 {
		return 0, errors.NewModelError("LogisticRegression.Score", "empty data", errors.ErrEmptyData)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if int(predictions.At(i, 0)) == int(y.At(i, 0)) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// ExportWeights はモデルの重みをModelWeights形式でエクスポートする。
// フラットな係数配列で表現できる二値分類モデルのみ対応する。
func (lr *LogisticRegression) ExportWeights() (*model.ModelWeights, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "ExportWeights")
	}
	if lr.nClasses != 2 {
		return nil, errors.NewValueError("LogisticRegression.ExportWeights",
			"only binary models can be exported as flat weights")
	}

	coef := make([]float64, len(lr.coef[0]))
	copy(coef, lr.coef[0])

	w := &model.ModelWeights{
		ModelType:    "LogisticRegression",
		Version:      mlcore.Version,
		Coefficients: coef,
		Intercept:    lr.intercept[0],
		Hyperparameters: map[string]interface{}{
			"penalty":       lr.penalty,
			"C":             lr.c,
			"fit_intercept": lr.fitIntercept,
			"max_iter":      lr.maxIter,
			"tol":           lr.tol,
		},
		Metadata: map[string]interface{}{
			"classes": lr.Classes(),
		},
		IsFitted: true,
	}
	w.StampChecksum()
	return w, nil
}

// ImportWeights はModelWeightsから二値分類モデルの重みを復元する
func (lr *LogisticRegression) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("LogisticRegression.ImportWeights", "weights must not be nil")
	}
	if w.ModelType != "LogisticRegression" {
		return errors.NewValueError("LogisticRegression.ImportWeights",
			"model type mismatch: expected LogisticRegression, got "+w.ModelType)
	}
	if err := w.Validate(); err != nil {
		return errors.Wrap(err, "invalid weights")
	}
	if err := w.VerifyChecksum(); err != nil {
		return errors.Wrap(err, "checksum verification failed")
	}

	classes, err := classesFromMetadata(w.Metadata["classes"])
	if err != nil {
		return err
	}

	if v, ok := w.Hyperparameters["penalty"].(string); ok {
		lr.penalty = v
	}
	if v, ok := w.Hyperparameters["C"].(float64); ok {
		lr.c = v
	}
	if v, ok := w.Hyperparameters["fit_intercept"].(bool); ok {
		lr.fitIntercept = v
	}

	lr.classes = classes
	lr.nClasses = len(classes)
	lr.nFeatures = len(w.Coefficients)

	lr.coef = [][]float64{make([]float64, lr.nFeatures)}
	copy(lr.coef[0], w.Coefficients)
	lr.intercept = []float64{w.Intercept}
	lr.nIter = make([]int, 1)

	lr.state.SetFitted()
	return nil
}

// classesFromMetadata はメタデータのクラスラベルを復元する。
// JSON経由では[]interface{}(float64)になるため両方の表現を受け付ける。
func classesFromMetadata(v interface{}) ([]int, error) {
	switch vals := v.(type) {
	case []int:
		classes := make([]int, len(vals))
		copy(classes, vals)
		if len(classes) != 2 {
			return nil, errors.NewValueError("LogisticRegression.ImportWeights",
				"weights must contain exactly 2 classes")
		}
		return classes, nil
	case []interface{}:
		classes := make([]int, 0, len(vals))
		for _, val := range vals {
			f, ok := val.(float64)
			if !ok {
				return nil, errors.NewValueError("LogisticRegression.ImportWeights",
					"classes metadata has invalid element type")
			}
			classes = append(classes, int(f))
		}
		if len(classes) != 2 {
			return nil, errors.NewValueError("LogisticRegression.ImportWeights",
				"weights must contain exactly 2 classes")
		}
		return classes, nil
	default:
		return nil, errors.NewValueError("LogisticRegression.ImportWeights",
			"weights missing classes metadata")
	}
}

// sigmoid はロジスティック関数 1 / (1 + e^(-z)) を計算する
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-z))
}
