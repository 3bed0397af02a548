package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// scoredPair couples a predicted score with the true relevance of the same
// item. Declared anonymously so ranking helpers can be fed ad-hoc slices.
type scoredPair = struct {
	score     float64
	relevance float64
}

// dcg computes the discounted cumulative gain of the first k pairs in the
// order given, using exponential gain (2^relevance - 1) and a log2(i+2)
// positional discount.
func dcg(pairs []scoredPair, k int) float64 {
	if k < 0 || k > len(pairs) {
		k = len(pairs)
	}
	var sum float64
	for i := 0; i < k; i++ {
		gain := math.Exp2(pairs[i].relevance) - 1
		sum += gain / math.Log2(float64(i)+2)
	}
	return sum
}

// NDCG computes the normalized discounted cumulative gain at cutoff k.
// Relevance labels must be non-negative; k must be positive, or -1 to rank
// the full list. A k larger than the list is truncated to the list length.
//
// When every relevance label is zero the ideal DCG is zero and the metric
// is undefined; an UndefinedMetricWarning is emitted and 0 is returned.
func NDCG(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	n, err := validatePair("NDCG", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if k == 0 || k < -1 {
		return 0, errors.NewValueError("NDCG", "k must be positive, or -1 for the full list")
	}
	if k == -1 || k > n {
		k = n
	}

	pairs := make([]scoredPair, n)
	for i := 0; i < n; i++ {
		rel := yTrue.AtVec(i)
		if rel < 0 {
			return 0, errors.NewValueError("NDCG", "relevance labels must be non-negative")
		}
		pairs[i] = scoredPair{score: yPred.AtVec(i), relevance: rel}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].score > pairs[b].score
	})
	ranked := dcg(pairs, k)

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].relevance > pairs[b].relevance
	})
	ideal := dcg(pairs, k)

	if ideal == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("NDCG", "all relevance labels are zero", 0))
		return 0, nil
	}
	return ranked / ideal, nil
}

// NDCGMatrix computes NDCG from matrix inputs, using the first column of
// each matrix.
func NDCGMatrix(yTrue, yPred mat.Matrix, k int) (float64, error) {
	yTrueVec, yPredVec, err := firstColumns("NDCGMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return NDCG(yTrueVec, yPredVec, k)
}

// AveragePrecision computes the average of the precision values at each
// rank where a relevant item appears, ordering items by descending score.
// Relevance labels must be binary.
//
// When yTrue contains no relevant items the metric is undefined; an
// UndefinedMetricWarning is emitted and 0 is returned.
func AveragePrecision(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("AveragePrecision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	nPos, err := countBinary("AveragePrecision", yTrue)
	if err != nil {
		return 0, err
	}
	if nPos == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AveragePrecision", "no relevant items in yTrue", 0))
		return 0, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) > yPred.AtVec(idx[b])
	})

	hits := 0
	var sum float64
	for rank, i := range idx {
		if yTrue.AtVec(i) == 1 {
			hits++
			sum += float64(hits) / float64(rank+1)
		}
	}
	return sum / float64(nPos), nil
}

// MeanAveragePrecision averages AveragePrecision over a list of queries.
// Both lists must be non-empty and of equal length.
func MeanAveragePrecision(yTrueList, yPredList []*mat.VecDense) (float64, error) {
	if len(yTrueList) == 0 {
		return 0, errors.NewValueError("MeanAveragePrecision", "empty query list")
	}
	if len(yTrueList) != len(yPredList) {
		return 0, errors.NewDimensionError("MeanAveragePrecision", len(yTrueList), len(yPredList), 0)
	}

	var sum float64
	for qi := range yTrueList {
		ap, err := AveragePrecision(yTrueList[qi], yPredList[qi])
		if err != nil {
			return 0, errors.Wrapf(err, "query %d", qi)
		}
		sum += ap
	}
	return sum / float64(len(yTrueList)), nil
}
