package model

import "gonum.org/v1/gonum/mat"

// Transformer は特徴量変換器のインターフェース。
// StandardScaler や MinMaxScaler のような前処理器が実装する。
type Transformer interface {
	// Fit は訓練データから変換パラメータを学習する
	Fit(X mat.Matrix) error

	// Transform は学習済みパラメータでデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform は Fit と Transform を続けて実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}