package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// logLossEpsilon clips predicted probabilities away from 0 and 1 so that
// the log loss stays finite.
const logLossEpsilon = 1e-15

// validatePair checks that both vectors are non-nil, non-empty and of equal
// length, returning the shared length.
func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "input vectors must not be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// countBinary validates that every label is 0 or 1 and returns the number
// of positive labels.
func countBinary(op string, y *mat.VecDense) (int, error) {
	nPos := 0
	for i := 0; i < y.Len(); i++ {
		switch v := y.AtVec(i); v {
		case 1:
			nPos++
		case 0:
		default:
			return 0, errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nPos, nil
}

// Accuracy returns the fraction of predictions that exactly match the true
// labels. Labels may be multiclass; values are compared for equality.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError returns the fraction of misclassified samples,
// i.e. 1 - Accuracy.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// AUC computes the area under the ROC curve for binary labels using the
// rank-sum (Mann-Whitney U) formulation. Tied scores receive their average
// rank, so a constant score yields 0.5.
//
// When yTrue contains only one class the metric is undefined; an
// UndefinedMetricWarning is emitted and 0.5 is returned.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	nPos, err := countBinary("AUC", yTrue)
	if err != nil {
		return 0, err
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	// Assign 1-based ranks, averaging over groups of tied scores.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && yPred.AtVec(idx[j+1]) == yPred.AtVec(idx[i]) {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var rankSum float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			rankSum += ranks[i]
		}
	}

	u := rankSum - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix computes AUC from matrix inputs. Only the first column of each
// matrix is used, which allows n×1 prediction matrices to be scored without
// conversion.
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	yTrueVec, yPredVec, err := firstColumns("AUCMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AUC(yTrueVec, yPredVec)
}

// BinaryLogLoss computes the mean negative log-likelihood of binary labels
// under the predicted probabilities. Probabilities are clipped to
// [logLossEpsilon, 1-logLossEpsilon] before taking logarithms.
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if _, err := countBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEpsilon, 1-logLossEpsilon)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// Precision returns tp / (tp + fp) for binary labels, treating 1 as the
// positive class. When nothing is predicted positive the metric is
// undefined; an UndefinedMetricWarning is emitted and 0 is returned.
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	tp, fp, _, err := binaryCounts("Precision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if tp+fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("Precision", "no samples predicted positive", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fp), nil
}

// Recall returns tp / (tp + fn) for binary labels, treating 1 as the
// positive class. When yTrue contains no positives the metric is undefined;
// an UndefinedMetricWarning is emitted and 0 is returned.
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	tp, _, fn, err := binaryCounts("Recall", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if tp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("Recall", "no positive samples in yTrue", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fn), nil
}

// F1Score returns the harmonic mean of Precision and Recall. When both are
// zero the metric is undefined; an UndefinedMetricWarning is emitted and 0
// is returned.
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	tp, fp, fn, err := binaryCounts("F1Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	// 2tp / (2tp + fp + fn) avoids compounding the zero-division fallbacks
	// of Precision and Recall.
	denom := 2*tp + fp + fn
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("F1Score", "no positive samples or predictions", 0))
		return 0, nil
	}
	return 2 * float64(tp) / float64(denom), nil
}

// binaryCounts tallies true positives, false positives and false negatives
// for binary labels with 1 as the positive class.
func binaryCounts(op string, yTrue, yPred *mat.VecDense) (tp, fp, fn int, err error) {
	n, err := validatePair(op, yTrue, yPred)
	if err != nil {
		return 0, 0, 0, err
	}
	if _, err := countBinary(op, yTrue); err != nil {
		return 0, 0, 0, err
	}
	if _, err := countBinary(op, yPred); err != nil {
		return 0, 0, 0, err
	}

	for i := 0; i < n; i++ {
		truePos := yTrue.AtVec(i) == 1
		predPos := yPred.AtVec(i) == 1
		switch {
		case truePos && predPos:
			tp++
		case !truePos && predPos:
			fp++
		case truePos && !predPos:
			fn++
		}
	}
	return tp, fp, fn, nil
}

// ConfusionMatrix builds a k×k matrix over the sorted union of labels seen
// in yTrue and yPred. Entry (i, j) counts samples whose true label is
// labels[i] and whose predicted label is labels[j]. The label order is
// returned alongside the matrix.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (*mat.Dense, []float64, error) {
	n, err := validatePair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[float64]struct{})
	for i := 0; i < n; i++ {
		seen[yTrue.AtVec(i)] = struct{}{}
		seen[yPred.AtVec(i)] = struct{}{}
	}
	labels := make([]float64, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	index := make(map[float64]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r := index[yTrue.AtVec(i)]
		c := index[yPred.AtVec(i)]
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}

// firstColumns extracts the first column of each matrix as a vector after
// validating shapes.
func firstColumns(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "input matrices must not be nil")
	}
	r, c := yTrue.Dims()
	rp, cp := yPred.Dims()
	if r == 0 || c == 0 || rp == 0 || cp == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if r != rp {
		return nil, nil, errors.NewDimensionError(op, r, rp, 0)
	}

	yTrueVec := mat.NewVecDense(r, nil)
	yPredVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}
	return yTrueVec, yPredVec, nil
}
