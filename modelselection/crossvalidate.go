package modelselection

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// Model is the estimator surface cross-validation drives: fit on the
// training rows of a fold, then score both partitions.
type Model interface {
	model.Fitter
	model.Scorer
}

// ScoreFunc computes an evaluation score for a fitted model. A nil ScoreFunc
// makes CrossValidate fall back to the model's own Score method.
type ScoreFunc func(m Model, X, y mat.Matrix) (float64, error)

// CVResult collects per-fold scores from a cross-validation run. Index i
// holds the scores of fold i.
type CVResult struct {
	TrainScores []float64
	TestScores  []float64
}

// MeanScore returns the mean of the test scores.
func (r *CVResult) MeanScore() float64 {
	if len(r.TestScores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range r.TestScores {
		sum += s
	}
	return sum / float64(len(r.TestScores))
}

// StdScore returns the sample standard deviation of the test scores.
func (r *CVResult) StdScore() float64 {
	n := len(r.TestScores)
	if n < 2 {
		return 0
	}
	mean := r.MeanScore()
	sumSq := 0.0
	for _, s := range r.TestScores {
		d := s - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// CrossValidate evaluates a model over the folds produced by splitter. Each
// fold gets a fresh model from build, fitted on the training rows and scored
// on both partitions. Folds run concurrently; the first error cancels the
// remaining ones.
func CrossValidate(build func() Model, X, y mat.Matrix, splitter Splitter, score ScoreFunc) (*CVResult, error) {
	if build == nil {
		return nil, errors.NewValueError("CrossValidate", "build function must not be nil")
	}
	if splitter == nil {
		return nil, errors.NewValueError("CrossValidate", "splitter must not be nil")
	}
	if X == nil || y == nil {
		return nil, errors.NewValueError("CrossValidate", "input matrices must not be nil")
	}

	folds, err := splitter.Split(X, y)
	if err != nil {
		return nil, err
	}

	result := &CVResult{
		TrainScores: make([]float64, len(folds)),
		TestScores:  make([]float64, len(folds)),
	}

	g, ctx := errgroup.WithContext(context.Background())
	for i, fold := range folds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			trainX, trainY := subsetRows(X, y, fold.TrainIndices)
			testX, testY := subsetRows(X, y, fold.TestIndices)

			m := build()
			if err := m.Fit(trainX, trainY); err != nil {
				return errors.Wrapf(err, "fold %d: fit", i)
			}

			trainScore, err := applyScore(score, m, trainX, trainY)
			if err != nil {
				return errors.Wrapf(err, "fold %d: train score", i)
			}
			testScore, err := applyScore(score, m, testX, testY)
			if err != nil {
				return errors.Wrapf(err, "fold %d: test score", i)
			}

			result.TrainScores[i] = trainScore
			result.TestScores[i] = testScore
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func applyScore(score ScoreFunc, m Model, X, y mat.Matrix) (float64, error) {
	if score != nil {
		return score(m, X, y)
	}
	return m.Score(X, y)
}
