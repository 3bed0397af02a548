// Package modelselection provides data splitting and cross-validation
// utilities for model evaluation.
package modelselection

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// Fold holds the row indices of one train/test partition.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter generates train/test folds over a dataset.
type Splitter interface {
	// Split returns the folds for the given data.
	Split(X, y mat.Matrix) ([]Fold, error)

	// NumSplits returns the number of folds Split will produce.
	NumSplits() int
}

// KFold splits data into k consecutive folds. Each fold serves as the test
// set exactly once while the remaining folds form the training set.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a k-fold splitter. Fewer than 2 splits falls back to the
// default of 5.
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// NumSplits returns the number of folds.
func (kf *KFold) NumSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. Folds are disjoint,
// cover every row, and differ in size by at most one. With Shuffle enabled
// the same RandomSeed always yields the same folds.
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	if X == nil {
		return nil, errors.NewValueError("KFold.Split", "input matrix must not be nil")
	}
	nSamples, _ := X.Dims()
	if nSamples < kf.NSplits {
		return nil, errors.NewValidationError("n_splits",
			"cannot have more folds than samples", kf.NSplits)
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	start := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		test := make([]int, testSize)
		copy(test, indices[start:start+testSize])

		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:start]...)
		train = append(train, indices[start+testSize:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start += testSize
	}

	return folds, nil
}

// TrainTestSplit shuffles the rows and splits them into complementary train
// and test sets. testSize is the fraction of rows assigned to the test set,
// rounded up. The same seed always yields the same split.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int) (XTrain, XTest, yTrain, yTest *mat.Dense, err error) {
	if X == nil || y == nil {
		return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit", "input matrices must not be nil")
	}
	n, _ := X.Dims()
	ry, _ := y.Dims()
	if n == 0 {
		return nil, nil, nil, nil, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", n, ry, 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, errors.NewValidationError("test_size",
			"must be strictly between 0 and 1", testSize)
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n {
		return nil, nil, nil, nil, errors.NewValidationError("test_size",
			"leaves no training samples", testSize)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	XTest, yTest = subsetRows(X, y, indices[:nTest])
	XTrain, yTrain = subsetRows(X, y, indices[nTest:])
	return XTrain, XTest, yTrain, yTest, nil
}

// subsetRows copies the selected rows of X and y into fresh matrices.
// Indices are sorted first so the subset preserves the original row order.
func subsetRows(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.Ints(sorted)

	_, xCols := X.Dims()
	_, yCols := y.Dims()
	xSub := mat.NewDense(len(sorted), xCols, nil)
	ySub := mat.NewDense(len(sorted), yCols, nil)
	for i, idx := range sorted {
		for j := 0; j < xCols; j++ {
			xSub.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ySub.Set(i, j, y.At(idx, j))
		}
	}
	return xSub, ySub
}
