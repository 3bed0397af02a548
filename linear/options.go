package linear

// LinearRegressionOption はLinearRegressionの設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept は切片を学習するかどうかを設定する（デフォルト: true）。
// falseの場合、計画行列に1の列を追加せず、切片は常に0になる。
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRStats は推測統計量（標準誤差・t値・p値・F統計量など）の計算を
// 有効にする（デフォルト: false）。有効にすると学習データのコピーを
// モデル内に保持するため、メモリ使用量が増える。
func WithLRStats(compute bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.computeStats = compute
	}
}
