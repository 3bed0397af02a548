// Package linalg はモデル実装で共有する線形代数の補助ルーチンを提供します。
package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/core/parallel"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// machineEps はfloat64のマシンイプシロン
const machineEps = 2.220446049250313e-16

// interceptParallelThreshold はこの行数以下では逐次処理を使用する
const interceptParallelThreshold = 1000

// singularValues は行列の特異値を降順で返す
func singularValues(a mat.Matrix) ([]float64, error) {
	r, c := a.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("linalg.singularValues", "empty matrix", errors.ErrEmptyData)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return nil, errors.NewModelError("linalg.singularValues", "SVD factorization failed", nil)
	}
	return svd.Values(nil), nil
}

// IsInvertibleSVD は正方行列が可逆かどうかをSVDに基づいて判定する。
// 最小特異値が 最大特異値 * n * マシンイプシロン を超える場合に可逆とみなす
// （numpyのmatrix_rankと同じ許容値）。
//
// 正規方程式を解く前の (X^T X) の事前チェックに使用する。
func IsInvertibleSVD(a mat.Matrix) (bool, error) {
	r, c := a.Dims()
	if r != c {
		return false, errors.NewValueError("linalg.IsInvertibleSVD", "matrix must be square")
	}

	values, err := singularValues(a)
	if err != nil {
		return false, err
	}

	largest := values[0]
	smallest := values[len(values)-1]
	if largest == 0 {
		return false, nil
	}
	return smallest > float64(r)*machineEps*largest, nil
}

// ConditionNumber は2ノルムでの条件数（最大特異値 / 最小特異値）を返す。
// 特異行列の場合は +Inf を返す。
func ConditionNumber(a mat.Matrix) (float64, error) {
	values, err := singularValues(a)
	if err != nil {
		return 0, err
	}

	largest := values[0]
	smallest := values[len(values)-1]
	if smallest == 0 {
		return math.Inf(1), nil
	}
	return largest / smallest, nil
}

// AddInterceptColumn は切片項 beta_0 のために X の先頭に 1 の列を追加した
// 計画行列 [1, X] を返す。行数が大きい場合は並列にコピーする。
func AddInterceptColumn(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	design := mat.NewDense(r, c+1, nil)

	parallel.ParallelizeWithThreshold(r, interceptParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			design.Set(i, 0, 1.0) // 切片項
			for j := 0; j < c; j++ {
				design.Set(i, j+1, x.At(i, j))
			}
		}
	})

	return design
}
