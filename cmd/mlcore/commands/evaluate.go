package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/dataset"
	"github.com/YuminosukeSato/mlcore/metrics"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

func evaluateCmd() *cobra.Command {
	var modelPath, dataPath, target string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a saved model against labeled data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.SafeExecute("evaluate", func() error {
				return runEvaluate(cmd, modelPath, dataPath, target)
			})
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "weights JSON path")
	cmd.Flags().StringVar(&dataPath, "data", "", "labeled CSV path")
	cmd.Flags().StringVar(&target, "target", "", "name of the target column")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func runEvaluate(cmd *cobra.Command, modelPath, dataPath, target string) error {
	m, w, err := loadSavedModel(modelPath)
	if err != nil {
		return err
	}

	table, err := dataset.LoadCSV(dataPath, dataset.WithTarget(target))
	if err != nil {
		return err
	}
	X, y, err := table.Features(target)
	if err != nil {
		return err
	}

	pred, err := m.Predict(X)
	if err != nil {
		return err
	}
	predVec := columnVec(pred)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "model: %s (%s)\n", w.ModelType, modelPath)
	fmt.Fprintf(out, "data:  %s (%d samples)\n\n", dataPath, y.Len())

	if w.ModelType == "LogisticRegression" {
		return printClassificationMetrics(out, y, predVec)
	}
	return printRegressionMetrics(out, y, predVec)
}

func printRegressionMetrics(out io.Writer, yTrue, yPred *mat.VecDense) error {
	mse, err := metrics.MSE(yTrue, yPred)
	if err != nil {
		return err
	}
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return err
	}
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return err
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%-5s %14.6f\n", "MSE", mse)
	fmt.Fprintf(out, "%-5s %14.6f\n", "RMSE", rmse)
	fmt.Fprintf(out, "%-5s %14.6f\n", "MAE", mae)
	fmt.Fprintf(out, "%-5s %14.6f\n", "R2", r2)
	return nil
}

func printClassificationMetrics(out io.Writer, yTrue, yPred *mat.VecDense) error {
	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%-10s %8.4f\n", "accuracy", acc)

	// Precision, recall and F1 are defined here for binary 0/1 labels.
	prec, err := metrics.Precision(yTrue, yPred)
	if err != nil {
		fmt.Fprintln(out, "precision/recall/f1 skipped: labels are not binary")
		return nil
	}
	rec, err := metrics.Recall(yTrue, yPred)
	if err != nil {
		return err
	}
	f1, err := metrics.F1Score(yTrue, yPred)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%-10s %8.4f\n", "precision", prec)
	fmt.Fprintf(out, "%-10s %8.4f\n", "recall", rec)
	fmt.Fprintf(out, "%-10s %8.4f\n", "f1", f1)
	return nil
}
