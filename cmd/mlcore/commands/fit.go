package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/dataset"
	"github.com/YuminosukeSato/mlcore/linear"
	"github.com/YuminosukeSato/mlcore/modelselection"
	"github.com/YuminosukeSato/mlcore/pkg/config"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
	"github.com/YuminosukeSato/mlcore/pkg/log"
	"github.com/YuminosukeSato/mlcore/plotting"
)

// estimator is the surface fit drives: train, predict, score, export.
type estimator interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
	Score(X, y mat.Matrix) (float64, error)
	ExportWeights() (*model.ModelWeights, error)
}

func fitCmd() *cobra.Command {
	var configPath, plotDir string

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a model from an experiment file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.SafeExecute("fit", func() error {
				return runFit(cmd, configPath, plotDir)
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "experiment YAML path")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringVar(&plotDir, "plot-dir", "",
		"write diagnostic plots to this directory (overrides the experiment file)")
	return cmd
}

func runFit(cmd *cobra.Command, configPath, plotDirFlag string) error {
	exp, err := config.LoadExperiment(configPath)
	if err != nil {
		return err
	}

	table, err := dataset.LoadCSV(exp.Dataset.Path, dataset.WithTarget(exp.Dataset.Target))
	if err != nil {
		return err
	}
	X, y, featureNames, err := featureMatrix(table, exp.Dataset.Target, exp.Dataset.Features)
	if err != nil {
		return err
	}

	XTrain, XTest, yTrain, yTest, err := modelselection.TrainTestSplit(
		X, y, exp.Split.TestSize, exp.Split.Seed)
	if err != nil {
		return err
	}

	m, err := buildEstimator(exp.Model)
	if err != nil {
		return err
	}
	if err := m.Fit(XTrain, yTrain); err != nil {
		return err
	}

	trainScore, err := m.Score(XTrain, yTrain)
	if err != nil {
		return err
	}
	testScore, err := m.Score(XTest, yTest)
	if err != nil {
		return err
	}

	trainRows, _ := XTrain.Dims()
	logger := log.GetLoggerWithName("mlcore.fit")
	logger.Info("model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, trainRows,
		log.FeaturesKey, len(featureNames),
		log.R2ScoreKey, testScore,
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "experiment:  %s\n", exp.Name)
	fmt.Fprintf(out, "model:       %s\n", exp.Model.Kind)
	fmt.Fprintf(out, "train score: %.6f\n", trainScore)
	fmt.Fprintf(out, "test score:  %.6f\n", testScore)

	if lr, ok := m.(*linear.LinearRegression); ok {
		if summary, err := lr.Summary(); err == nil {
			fmt.Fprintln(out)
			fmt.Fprintln(out, summary)
		}
	}

	weights, err := m.ExportWeights()
	if err != nil {
		return err
	}
	weights.Features = featureNames

	outPath := exp.Output.ModelPath
	if outPath == "" {
		name := exp.Name
		if name == "" {
			name = "model"
		}
		outPath = filepath.Join(cfg.ModelDir, name+".json")
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create output directory %s", dir)
		}
	}
	if err := weights.SaveToFile(outPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "weights saved to %s\n", outPath)

	plotDir := plotDirFlag
	if plotDir == "" {
		plotDir = exp.Output.PlotDir
	}
	if plotDir != "" && exp.Model.Kind != config.ModelLogistic {
		if err := writeDiagnostics(m, XTest, yTest, plotDir); err != nil {
			return err
		}
		fmt.Fprintf(out, "plots written to %s\n", plotDir)
	}
	return nil
}

// buildEstimator constructs the model named by the experiment, applying
// its numeric hyperparameters.
func buildEstimator(mc config.ModelConfig) (estimator, error) {
	switch mc.Kind {
	case config.ModelLinear:
		return linear.NewLinearRegression(
			linear.WithLRFitIntercept(mc.Param("fit_intercept", 1) != 0),
			linear.WithLRStats(mc.Param("stats", 1) != 0),
		), nil
	case config.ModelRidge:
		return linear.NewRidge(
			linear.WithRidgeAlpha(mc.Param("alpha", 1.0)),
			linear.WithRidgeFitIntercept(mc.Param("fit_intercept", 1) != 0),
		), nil
	case config.ModelLogistic:
		return linear.NewLogisticRegression(
			linear.WithLRC(mc.Param("c", 1.0)),
			linear.WithLRMaxIter(int(mc.Param("iterations", 100))),
		), nil
	default:
		return nil, errors.NewValidationError("model.kind",
			"must be one of linear, ridge, logistic", mc.Kind)
	}
}

// featureMatrix extracts X and y from the table. An empty feature list
// selects every non-target column.
func featureMatrix(t *dataset.Table, target string, features []string) (*mat.Dense, *mat.VecDense, []string, error) {
	if len(features) == 0 {
		X, y, err := t.Features(target)
		if err != nil {
			return nil, nil, nil, err
		}
		return X, y, t.FeatureNames(target), nil
	}

	y, err := t.Column(target)
	if err != nil {
		return nil, nil, nil, err
	}

	X := mat.NewDense(y.Len(), len(features), nil)
	for j, name := range features {
		if name == target {
			return nil, nil, nil, errors.NewValueError("fit",
				"target column cannot be used as a feature")
		}
		col, err := t.Column(name)
		if err != nil {
			return nil, nil, nil, err
		}
		for i := 0; i < col.Len(); i++ {
			X.Set(i, j, col.AtVec(i))
		}
	}
	return X, y, features, nil
}

// writeDiagnostics saves regression diagnostic plots for the test split.
func writeDiagnostics(m estimator, X, y mat.Matrix, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create plot directory %s", dir)
	}

	pred, err := m.Predict(X)
	if err != nil {
		return err
	}

	yVec := columnVec(y)
	fitted := columnVec(pred)
	residuals := mat.NewVecDense(yVec.Len(), nil)
	for i := 0; i < yVec.Len(); i++ {
		residuals.SetVec(i, yVec.AtVec(i)-fitted.AtVec(i))
	}

	if _, cols := X.Dims(); cols == 1 {
		p, err := plotting.RegressionFit(X, yVec, m)
		if err != nil {
			return err
		}
		if err := plotting.Save(p, filepath.Join(dir, "regression_fit.png")); err != nil {
			return err
		}
	}

	p, err := plotting.ResidualsVsFitted(fitted, residuals)
	if err != nil {
		return err
	}
	if err := plotting.Save(p, filepath.Join(dir, "residuals_vs_fitted.png")); err != nil {
		return err
	}

	hist, err := plotting.ResidualHistogram(residuals, 10)
	if err != nil {
		return err
	}
	return plotting.Save(hist, filepath.Join(dir, "residual_histogram.png"))
}

// columnVec copies the first column of m into a vector.
func columnVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
