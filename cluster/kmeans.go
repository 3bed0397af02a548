// Package cluster はクラスタリングアルゴリズムを提供する。
package cluster

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
	"github.com/YuminosukeSato/mlcore/pkg/log"
)

// KMeans はLloyd法によるK-meansクラスタリング。
// 初期中心はk-means++で選択し、割り当てと中心更新を
// 中心移動量がtol未満になるかmaxIterに達するまで繰り返す。
// 反復中に空になったクラスタは、割り当て先中心から最も遠い
// サンプルの位置へ再初期化される。
type KMeans struct {
	state *model.StateManager // 状態管理（コンポジション）

	// ハイパーパラメータ
	nClusters   int
	maxIter     int
	tol         float64
	randomState int64

	// 学習済みパラメータ
	centers   [][]float64 // クラスタ中心（nClusters x nFeatures）
	labels    []int       // 学習データの割り当て
	inertia   float64     // クラスタ内平方和誤差
	nIter     int         // 実行された反復数
	nFeatures int

	mu     sync.RWMutex
	logger log.Logger
}

// KMeansOption はKMeansの設定オプション
type KMeansOption func(*KMeans)

// WithKMeansNClusters はクラスタ数を設定
func WithKMeansNClusters(n int) KMeansOption {
	return func(km *KMeans) {
		km.nClusters = n
	}
}

// WithKMeansMaxIter は最大反復数を設定
func WithKMeansMaxIter(maxIter int) KMeansOption {
	return func(km *KMeans) {
		km.maxIter = maxIter
	}
}

// WithKMeansTol は収束判定の許容誤差を設定。
// 1回の反復での中心移動量の二乗和がこの値未満になると停止する。
func WithKMeansTol(tol float64) KMeansOption {
	return func(km *KMeans) {
		km.tol = tol
	}
}

// WithKMeansRandomState は乱数シードを設定。
// 非負のシードを与えると、同じデータに対するFitは常に同じ結果を返す。
func WithKMeansRandomState(seed int64) KMeansOption {
	return func(km *KMeans) {
		km.randomState = seed
	}
}

// NewKMeans は新しいKMeansを作成する
func NewKMeans(opts ...KMeansOption) *KMeans {
	km := &KMeans{
		state:       model.NewStateManager(),
		nClusters:   8,
		maxIter:     100,
		tol:         1e-4,
		randomState: -1,
	}
	for _, opt := range opts {
		opt(km)
	}
	km.logger = log.NewEstimatorLogger("KMeans")
	return km
}

// newRNG はFitごとの乱数源を作る。シードが非負なら決定的。
func (km *KMeans) newRNG() *rand.Rand {
	if km.randomState >= 0 {
		return rand.New(rand.NewPCG(uint64(km.randomState), uint64(km.randomState)))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Fit はLloyd法でクラスタ中心を学習する。
// 中心の再計算を伴う各反復で慣性は単調に減少する。
func (km *KMeans) Fit(X mat.Matrix) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if X == nil {
		return errors.NewValueError("KMeans.Fit", "input matrix must not be nil")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("KMeans.Fit", "empty data", errors.ErrEmptyData)
	}
	if km.nClusters <= 0 {
		return errors.NewValidationError("n_clusters", "must be positive", km.nClusters)
	}
	if rows < km.nClusters {
		return errors.NewValidationError("n_clusters",
			"cannot exceed the number of samples", km.nClusters)
	}
	if km.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", km.maxIter)
	}
	if km.tol < 0 {
		return errors.NewValidationError("tol", "must be non-negative", km.tol)
	}

	rng := km.newRNG()
	centers := initKMeansPlusPlus(X, km.nClusters, rng)
	labels := make([]int, rows)
	nIter := 0

	for iter := 0; iter < km.maxIter; iter++ {
		nIter = iter + 1

		// 割り当てステップ
		for i := 0; i < rows; i++ {
			labels[i] = nearestCenter(mat.Row(nil, i, X), centers)
		}

		// 空クラスタの再初期化
		reseedEmptyClusters(X, centers, labels)

		// 更新ステップ: 各クラスタの平均を新しい中心とする
		newCenters := make([][]float64, km.nClusters)
		counts := make([]int, km.nClusters)
		for c := range newCenters {
			newCenters[c] = make([]float64, cols)
		}
		for i := 0; i < rows; i++ {
			c := labels[i]
			counts[c]++
			for j := 0; j < cols; j++ {
				newCenters[c][j] += X.At(i, j)
			}
		}
		for c := 0; c < km.nClusters; c++ {
			for j := 0; j < cols; j++ {
				newCenters[c][j] /= float64(counts[c])
			}
		}

		// 収束判定: 中心移動量の二乗和がtol未満なら停止
		shift := 0.0
		for c := 0; c < km.nClusters; c++ {
			d := euclideanDistance(centers[c], newCenters[c])
			shift += d * d
		}
		centers = newCenters
		if shift < km.tol {
			break
		}
	}

	// 最終的な割り当てと慣性の計算
	inertia := 0.0
	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		c := nearestCenter(sample, centers)
		labels[i] = c
		d := euclideanDistance(sample, centers[c])
		inertia += d * d
	}

	km.centers = centers
	km.labels = labels
	km.inertia = inertia
	km.nIter = nIter
	km.nFeatures = cols

	km.state.SetFitted()

	km.logger.Debug("model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, nIter,
	)

	return nil
}

// Predict は各サンプルに最も近いクラスタのインデックスを返す
func (km *KMeans) Predict(X mat.Matrix) ([]int, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if !km.state.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Predict")
	}
	if X == nil {
		return nil, errors.NewValueError("KMeans.Predict", "input matrix must not be nil")
	}
	rows, cols := X.Dims()
	if cols != km.nFeatures {
		return nil, errors.NewDimensionError("KMeans.Predict", km.nFeatures, cols, 1)
	}

	labels := make([]int, rows)
	for i := 0; i < rows; i++ {
		labels[i] = nearestCenter(mat.Row(nil, i, X), km.centers)
	}
	return labels, nil
}

// FitPredict は学習と学習データへのラベル付けを同時に行う
func (km *KMeans) FitPredict(X mat.Matrix) ([]int, error) {
	if err := km.Fit(X); err != nil {
		return nil, err
	}
	return km.Labels(), nil
}

// PredictCluster は単一サンプルの最近傍クラスタを返す
func (km *KMeans) PredictCluster(sample []float64) (int, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if !km.state.IsFitted() {
		return 0, errors.NewNotFittedError("KMeans", "PredictCluster")
	}
	if len(sample) != km.nFeatures {
		return 0, errors.NewDimensionError("KMeans.PredictCluster", km.nFeatures, len(sample), 1)
	}
	return nearestCenter(sample, km.centers), nil
}

// Transform は各サンプルと各クラスタ中心とのユークリッド距離を返す
func (km *KMeans) Transform(X mat.Matrix) (*mat.Dense, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if !km.state.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Transform")
	}
	if X == nil {
		return nil, errors.NewValueError("KMeans.Transform", "input matrix must not be nil")
	}
	rows, cols := X.Dims()
	if cols != km.nFeatures {
		return nil, errors.NewDimensionError("KMeans.Transform", km.nFeatures, cols, 1)
	}

	distances := mat.NewDense(rows, km.nClusters, nil)
	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		for c := 0; c < km.nClusters; c++ {
			distances.Set(i, c, euclideanDistance(sample, km.centers[c]))
		}
	}
	return distances, nil
}

// Centers は学習されたクラスタ中心を返す
func (km *KMeans) Centers() *mat.Dense {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if km.centers == nil {
		return nil
	}
	out := mat.NewDense(km.nClusters, km.nFeatures, nil)
	for c := 0; c < km.nClusters; c++ {
		out.SetRow(c, km.centers[c])
	}
	return out
}

// Labels は学習データのクラスタラベルを返す
func (km *KMeans) Labels() []int {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if km.labels == nil {
		return nil
	}
	labels := make([]int, len(km.labels))
	copy(labels, km.labels)
	return labels
}

// Inertia は慣性（クラスタ内平方和誤差）を返す
func (km *KMeans) Inertia() float64 {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.inertia
}

// NClusters はクラスタ数を返す
func (km *KMeans) NClusters() int {
	return km.nClusters
}

// NIterations は実行された反復数を返す
func (km *KMeans) NIterations() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.nIter
}

// IsFitted はモデルが学習済みかどうかを返す
func (km *KMeans) IsFitted() bool {
	return km.state.IsFitted()
}

// initKMeansPlusPlus はk-means++で初期中心を選択する。
// 2番目以降の中心は、既存中心までの最短距離の二乗に比例した
// 確率で選ばれる。
func initKMeansPlusPlus(X mat.Matrix, k int, rng *rand.Rand) [][]float64 {
	rows, cols := X.Dims()
	centers := make([][]float64, k)

	centers[0] = make([]float64, cols)
	copy(centers[0], mat.Row(nil, rng.IntN(rows), X))

	distances := make([]float64, rows)
	for c := 1; c < k; c++ {
		total := 0.0
		for i := 0; i < rows; i++ {
			sample := mat.Row(nil, i, X)
			minDist := math.Inf(1)
			for j := 0; j < c; j++ {
				if d := euclideanDistance(sample, centers[j]); d < minDist {
					minDist = d
				}
			}
			distances[i] = minDist * minDist
			total += distances[i]
		}

		selected := rows - 1
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i := 0; i < rows; i++ {
				cum += distances[i]
				if cum >= target {
					selected = i
					break
				}
			}
		} else {
			// 全サンプルが既存中心と一致する退化ケース
			selected = rng.IntN(rows)
		}

		centers[c] = make([]float64, cols)
		copy(centers[c], mat.Row(nil, selected, X))
	}
	return centers
}

// reseedEmptyClusters は空クラスタの中心を、割り当て先中心から
// 最も遠いサンプルの位置へ移し、そのサンプルを付け替える。
// 元のクラスタが空になる付け替えは行わない。
func reseedEmptyClusters(X mat.Matrix, centers [][]float64, labels []int) {
	rows, _ := X.Dims()
	counts := make([]int, len(centers))
	for _, c := range labels {
		counts[c]++
	}

	for c := range centers {
		if counts[c] > 0 {
			continue
		}

		farIdx := -1
		farDist := -1.0
		for i := 0; i < rows; i++ {
			if counts[labels[i]] <= 1 {
				continue
			}
			d := euclideanDistance(mat.Row(nil, i, X), centers[labels[i]])
			if d > farDist {
				farDist = d
				farIdx = i
			}
		}
		if farIdx < 0 {
			continue
		}

		copy(centers[c], mat.Row(nil, farIdx, X))
		counts[labels[farIdx]]--
		labels[farIdx] = c
		counts[c]++
	}
}

// nearestCenter は最近傍クラスタのインデックスを返す
func nearestCenter(sample []float64, centers [][]float64) int {
	minDist := math.Inf(1)
	nearest := 0
	for c, center := range centers {
		if d := euclideanDistance(sample, center); d < minDist {
			minDist = d
			nearest = c
		}
	}
	return nearest
}

// euclideanDistance はユークリッド距離を計算する
func euclideanDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
