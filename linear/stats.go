package linear

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// ErrStatsNotComputed は統計量が保持されていないモデルに対して
// 推測統計量を要求した場合のセンチネルエラー
var ErrStatsNotComputed = errors.New("statistics not computed; construct the model with WithLRStats(true)")

// ResidualSummary は残差の五数要約
type ResidualSummary struct {
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// RegressionStats は回帰診断のための推測統計量一式
type RegressionStats struct {
	NSamples         int
	NumPredictors    int
	DegreesOfFreedom int

	// 係数ごとの統計量（fitIntercept時は先頭が切片）
	Betas          []float64
	StandardErrors []float64
	TStatistics    []float64
	PValues        []float64

	RSquared         float64
	AdjRSquared      float64
	FStatistic       float64
	FPValue          float64
	ResidualStdError float64

	Residuals ResidualSummary
}

// requireStats は統計量の計算が可能な状態かを検証する
func (lr *LinearRegression) requireStats(method string) error {
	if !lr.state.IsFitted() {
		return errors.NewNotFittedError("LinearRegression", method)
	}
	if lr.design == nil {
		return errors.NewModelError("LinearRegression."+method, "statistics not retained", ErrStatsNotComputed)
	}
	return nil
}

// Residuals は学習データに対する残差 y - Xβ を返す
func (lr *LinearRegression) Residuals() ([]float64, error) {
	if err := lr.requireStats("Residuals"); err != nil {
		return nil, err
	}
	return lr.residuals(), nil
}

func (lr *LinearRegression) residuals() []float64 {
	n, _ := lr.design.Dims()
	var fitted mat.VecDense
	fitted.MulVec(lr.design, lr.betas)

	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = lr.yTrain.AtVec(i) - fitted.AtVec(i)
	}
	return residuals
}

// 残差平方和
func (lr *LinearRegression) residualSumSquares() float64 {
	var rss float64
	for _, r := range lr.residuals() {
		rss += r * r
	}
	return rss
}

// 全平方和（平均を素朴な予測量としたときの平方和）
func (lr *LinearRegression) totalSumSquares() float64 {
	n := lr.yTrain.Len()
	var mean float64
	for i := 0; i < n; i++ {
		mean += lr.yTrain.AtVec(i)
	}
	mean /= float64(n)

	var sst float64
	for i := 0; i < n; i++ {
		d := lr.yTrain.AtVec(i) - mean
		sst += d * d
	}
	return sst
}

// ResidualSummaryStats は残差の五数要約（最小値・第1四分位・中央値・第3四分位・最大値）を返す
func (lr *LinearRegression) ResidualSummaryStats() (ResidualSummary, error) {
	if err := lr.requireStats("ResidualSummaryStats"); err != nil {
		return ResidualSummary{}, err
	}

	residuals := lr.residuals()
	sorted := make([]float64, len(residuals))
	copy(sorted, residuals)
	sort.Float64s(sorted)

	return ResidualSummary{
		Min:    sorted[0],
		Q1:     percentile(sorted, 0.25),
		Median: percentile(sorted, 0.5),
		Q3:     percentile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}, nil
}

// percentile はソート済みスライスに対する線形補間パーセンタイルを計算する。
// 順位 h = (n-1)p を隣接する順序統計量の間で線形補間する（R type 7）。
// gonum/statのQuantileはEmpirical/LinInterpのみでこの方式を提供しないため、
// ここで直接実装している。
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// StandardErrors は係数の標準誤差 sqrt(diag(σ̂² (X^T X)^(-1))) を返す。
// σ̂² = RSS / dof は残差分散の不偏推定量。
func (lr *LinearRegression) StandardErrors() ([]float64, error) {
	if err := lr.requireStats("StandardErrors"); err != nil {
		return nil, err
	}
	return lr.standardErrors(), nil
}

func (lr *LinearRegression) standardErrors() []float64 {
	sigma2 := lr.residualSumSquares() / float64(lr.dof)

	p := lr.betas.Len()
	se := make([]float64, p)
	for i := 0; i < p; i++ {
		se[i] = math.Sqrt(sigma2 * lr.xtxInv.At(i, i))
	}
	return se
}

// TStatistics は係数ごとのt統計量 β / SE(β) を返す
func (lr *LinearRegression) TStatistics() ([]float64, error) {
	if err := lr.requireStats("TStatistics"); err != nil {
		return nil, err
	}

	se := lr.standardErrors()
	t := make([]float64, lr.betas.Len())
	for i := range t {
		t[i] = lr.betas.AtVec(i) / se[i]
	}
	return t, nil
}

// PValues は係数ごとの両側p値を返す。
// 帰無仮説 β_i = 0 の下で t統計量は自由度dofのt分布に従う。
func (lr *LinearRegression) PValues() ([]float64, error) {
	tStats, err := lr.TStatistics()
	if err != nil {
		return nil, err
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(lr.dof)}
	pValues := make([]float64, len(tStats))
	for i, t := range tStats {
		pValues[i] = 2 * dist.Survival(math.Abs(t))
	}
	return pValues, nil
}

// FStatistic はモデル全体の有意性を検定するF統計量を返す。
// F = (SST - RSS) * dof / (numPredictors * RSS)
func (lr *LinearRegression) FStatistic() (float64, error) {
	if err := lr.requireStats("FStatistic"); err != nil {
		return 0, err
	}

	sst := lr.totalSumSquares()
	rss := lr.residualSumSquares()
	return (sst - rss) * float64(lr.dof) / (float64(lr.numPredictors) * rss), nil
}

// FPValue はF統計量に対応するp値を返す。
// 帰無仮説（全係数が0）の下でF統計量はF(numPredictors, dof)分布に従う。
func (lr *LinearRegression) FPValue() (float64, error) {
	f, err := lr.FStatistic()
	if err != nil {
		return 0, err
	}

	dist := distuv.F{D1: float64(lr.numPredictors), D2: float64(lr.dof)}
	return dist.Survival(f), nil
}

// RSquared は学習データに対する決定係数を返す
func (lr *LinearRegression) RSquared() (float64, error) {
	if err := lr.requireStats("RSquared"); err != nil {
		return 0, err
	}
	return 1 - lr.residualSumSquares()/lr.totalSumSquares(), nil
}

// AdjustedRSquared は自由度調整済み決定係数を返す。
// 1 - (1 - R²) * numPredictors / dof
func (lr *LinearRegression) AdjustedRSquared() (float64, error) {
	r2, err := lr.RSquared()
	if err != nil {
		return 0, err
	}
	return 1 - (1-r2)*float64(lr.numPredictors)/float64(lr.dof), nil
}

// ResidualStandardError は残差標準誤差 sqrt(RSS / dof) を返す
func (lr *LinearRegression) ResidualStandardError() (float64, error) {
	if err := lr.requireStats("ResidualStandardError"); err != nil {
		return 0, err
	}
	return math.Sqrt(lr.residualSumSquares() / float64(lr.dof)), nil
}

// Stats は推測統計量一式をまとめて計算して返す
func (lr *LinearRegression) Stats() (*RegressionStats, error) {
	if err := lr.requireStats("Stats"); err != nil {
		return nil, err
	}

	se := lr.standardErrors()
	tStats, err := lr.TStatistics()
	if err != nil {
		return nil, err
	}
	pValues, err := lr.PValues()
	if err != nil {
		return nil, err
	}
	r2, err := lr.RSquared()
	if err != nil {
		return nil, err
	}
	adjR2, err := lr.AdjustedRSquared()
	if err != nil {
		return nil, err
	}
	fStat, err := lr.FStatistic()
	if err != nil {
		return nil, err
	}
	fPValue, err := lr.FPValue()
	if err != nil {
		return nil, err
	}
	rse, err := lr.ResidualStandardError()
	if err != nil {
		return nil, err
	}
	residuals, err := lr.ResidualSummaryStats()
	if err != nil {
		return nil, err
	}

	n, _ := lr.design.Dims()
	return &RegressionStats{
		NSamples:         n,
		NumPredictors:    lr.numPredictors,
		DegreesOfFreedom: lr.dof,
		Betas:            lr.Betas(),
		StandardErrors:   se,
		TStatistics:      tStats,
		PValues:          pValues,
		RSquared:         r2,
		AdjRSquared:      adjR2,
		FStatistic:       fStat,
		FPValue:          fPValue,
		ResidualStdError: rse,
		Residuals:        residuals,
	}, nil
}
