package commands

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/core/model"
	"github.com/YuminosukeSato/mlcore/dataset"
	"github.com/YuminosukeSato/mlcore/linear"
	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// savedModel is the surface shared by models reconstructed from a
// weights file.
type savedModel interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
	Score(X, y mat.Matrix) (float64, error)
}

func predictCmd() *cobra.Command {
	var modelPath, dataPath, outputPath string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict with a saved model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.SafeExecute("predict", func() error {
				return runPredict(cmd, modelPath, dataPath, outputPath)
			})
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "weights JSON path")
	cmd.Flags().StringVar(&dataPath, "data", "", "input CSV path (features only)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output CSV path (default stdout)")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runPredict(cmd *cobra.Command, modelPath, dataPath, outputPath string) error {
	m, _, err := loadSavedModel(modelPath)
	if err != nil {
		return err
	}

	table, err := dataset.LoadCSV(dataPath)
	if err != nil {
		return err
	}
	pred, err := m.Predict(table.Matrix())
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return errors.Wrapf(err, "create %s", outputPath)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "prediction"}); err != nil {
		return errors.Wrap(err, "write predictions")
	}
	rows, _ := pred.Dims()
	for i := 0; i < rows; i++ {
		record := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(pred.At(i, 0), 'g', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write predictions")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "write predictions")
}

// loadSavedModel reconstructs a model from a weights file, dispatching
// on the recorded model type.
func loadSavedModel(path string) (savedModel, *model.ModelWeights, error) {
	w, err := model.LoadWeightsFromFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load weights %s", path)
	}

	switch w.ModelType {
	case "LinearRegression":
		m := linear.NewLinearRegression()
		if err := m.ImportWeights(w); err != nil {
			return nil, nil, err
		}
		return m, w, nil
	case "Ridge":
		m := linear.NewRidge()
		if err := m.ImportWeights(w); err != nil {
			return nil, nil, err
		}
		return m, w, nil
	case "LogisticRegression":
		m := linear.NewLogisticRegression()
		if err := m.ImportWeights(w); err != nil {
			return nil, nil, err
		}
		return m, w, nil
	default:
		return nil, nil, errors.NewValueError("mlcore",
			"unsupported model type "+w.ModelType)
	}
}
