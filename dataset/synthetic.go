package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// MakeRegression は既知の係数を持つ線形回帰用の合成データを生成する。
// y = X・coef + ε、ε ~ N(0, noise²)。切片は0。
// 同じシードからは常に同じデータが生成される。
//
// 戻り値は説明変数X、目的変数y、真の係数coef。
func MakeRegression(nSamples, nFeatures int, noise float64, seed uint64) (*mat.Dense, *mat.VecDense, []float64, error) {
	if nSamples <= 0 {
		return nil, nil, nil, errors.NewValidationError("n_samples", "must be positive", nSamples)
	}
	if nFeatures <= 0 {
		return nil, nil, nil, errors.NewValidationError("n_features", "must be positive", nFeatures)
	}
	if noise < 0 {
		return nil, nil, nil, errors.NewValidationError("noise", "must be non-negative", noise)
	}

	src := rand.NewPCG(seed, seed)
	standard := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	coefDist := distuv.Uniform{Min: 0, Max: 100, Src: src}

	coef := make([]float64, nFeatures)
	for j := range coef {
		coef[j] = coefDist.Rand()
	}

	X := mat.NewDense(nSamples, nFeatures, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, standard.Rand())
		}
	}

	var noiseDist distuv.Normal
	if noise > 0 {
		noiseDist = distuv.Normal{Mu: 0, Sigma: noise, Src: src}
	}

	y := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		var v float64
		for j := 0; j < nFeatures; j++ {
			v += X.At(i, j) * coef[j]
		}
		if noise > 0 {
			v += noiseDist.Rand()
		}
		y.SetVec(i, v)
	}

	return X, y, coef, nil
}

// MakeBlobs は与えた中心のまわりに等方的なガウス分布のクラスタを生成する。
// サンプルは各中心にできるだけ均等に割り当てられ、ラベルは中心の
// インデックス。同じシードからは常に同じデータが生成される。
func MakeBlobs(nSamples int, centers [][]float64, std float64, seed uint64) (*mat.Dense, []int, error) {
	if nSamples <= 0 {
		return nil, nil, errors.NewValidationError("n_samples", "must be positive", nSamples)
	}
	if len(centers) == 0 {
		return nil, nil, errors.NewValidationError("centers", "at least one center is required", len(centers))
	}
	nFeatures := len(centers[0])
	if nFeatures == 0 {
		return nil, nil, errors.NewValidationError("centers", "centers must have at least one dimension", 0)
	}
	for c, center := range centers {
		if len(center) != nFeatures {
			return nil, nil, errors.NewValidationError("centers",
				"all centers must have the same dimension", c)
		}
	}
	if std < 0 {
		return nil, nil, errors.NewValidationError("std", "must be non-negative", std)
	}

	src := rand.NewPCG(seed, seed)
	noise := distuv.Normal{Mu: 0, Sigma: std, Src: src}

	k := len(centers)
	counts := make([]int, k)
	for c := range counts {
		counts[c] = nSamples / k
		if c < nSamples%k {
			counts[c]++
		}
	}

	X := mat.NewDense(nSamples, nFeatures, nil)
	labels := make([]int, nSamples)
	i := 0
	for c, center := range centers {
		for s := 0; s < counts[c]; s++ {
			for j := 0; j < nFeatures; j++ {
				v := center[j]
				if std > 0 {
					v += noise.Rand()
				}
				X.Set(i, j, v)
			}
			labels[i] = c
			i++
		}
	}

	return X, labels, nil
}
