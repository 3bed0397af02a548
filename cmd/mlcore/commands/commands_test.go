package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// writeTrainingCSV writes y = 3*x1 + 2*x2 + 5 with a small alternating
// perturbation so residual statistics are non-degenerate.
func writeTrainingCSV(t *testing.T, path string) {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("x1,x2,y\n")
	for i := 0; i < 20; i++ {
		x1 := float64(i)
		x2 := float64(i % 5)
		noise := 0.1
		if i%2 == 1 {
			noise = -0.1
		}
		y := 3*x1 + 2*x2 + 5 + noise
		fmt.Fprintf(&sb, "%g,%g,%g\n", x1, x2, y)
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
}

func TestFitPredictEvaluate(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "train.csv")
	writeTrainingCSV(t, csvPath)

	modelPath := filepath.Join(dir, "model.json")
	expPath := filepath.Join(dir, "exp.yaml")
	exp := fmt.Sprintf(`
name: smoke
dataset:
  path: %s
  target: y
model:
  kind: linear
split:
  test_size: 0.25
  seed: 3
output:
  model_path: %s
`, csvPath, modelPath)
	require.NoError(t, os.WriteFile(expPath, []byte(exp), 0o600))

	plotDir := filepath.Join(dir, "plots")
	out, err := runCLI(t, "fit", "--config", expPath, "--plot-dir", plotDir)
	require.NoError(t, err, "fit output:\n%s", out)
	assert.Contains(t, out, "train score:")
	assert.Contains(t, out, "test score:")
	require.FileExists(t, modelPath)
	for _, name := range []string{"residuals_vs_fitted.png", "residual_histogram.png"} {
		assert.FileExists(t, filepath.Join(plotDir, name))
	}

	// Two feature columns, so no single-feature fit plot.
	assert.NoFileExists(t, filepath.Join(plotDir, "regression_fit.png"))

	// Predict on fresh feature rows.
	predictInput := filepath.Join(dir, "incoming.csv")
	require.NoError(t, os.WriteFile(predictInput, []byte("x1,x2\n1,0\n2,1\n3,2\n"), 0o600))
	predictOutput := filepath.Join(dir, "pred.csv")
	out, err = runCLI(t, "predict", "--model", modelPath, "--data", predictInput, "--output", predictOutput)
	require.NoError(t, err, "predict output:\n%s", out)
	data, err := os.ReadFile(predictOutput)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4, "predictions:\n%s", data)
	assert.Equal(t, "index,prediction", lines[0])

	// Evaluate against the labeled training file.
	out, err = runCLI(t, "evaluate", "--model", modelPath, "--data", csvPath, "--target", "y")
	require.NoError(t, err, "evaluate output:\n%s", out)
	for _, want := range []string{"MSE", "RMSE", "MAE", "R2"} {
		assert.Contains(t, out, want)
	}
}

func TestPredictToStdout(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "train.csv")
	writeTrainingCSV(t, csvPath)

	modelPath := filepath.Join(dir, "model.json")
	expPath := filepath.Join(dir, "exp.yaml")
	exp := fmt.Sprintf(
		"dataset:\n  path: %s\n  target: y\nmodel:\n  kind: ridge\n  params:\n    alpha: 0.1\noutput:\n  model_path: %s\n",
		csvPath, modelPath)
	require.NoError(t, os.WriteFile(expPath, []byte(exp), 0o600))

	out, err := runCLI(t, "fit", "--config", expPath)
	require.NoError(t, err, "fit output:\n%s", out)

	input := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte("x1,x2\n4,1\n"), 0o600))
	out, err = runCLI(t, "predict", "--model", modelPath, "--data", input)
	require.NoError(t, err, "predict output:\n%s", out)
	assert.Contains(t, out, "index,prediction")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mlcore")
}

func TestFitMissingConfig(t *testing.T) {
	_, err := runCLI(t, "fit", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err, "missing experiment file")
}

func TestEvaluateUnknownTarget(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "train.csv")
	writeTrainingCSV(t, csvPath)

	modelPath := filepath.Join(dir, "model.json")
	expPath := filepath.Join(dir, "exp.yaml")
	exp := fmt.Sprintf(
		"dataset:\n  path: %s\n  target: y\nmodel:\n  kind: linear\noutput:\n  model_path: %s\n",
		csvPath, modelPath)
	require.NoError(t, os.WriteFile(expPath, []byte(exp), 0o600))
	out, err := runCLI(t, "fit", "--config", expPath)
	require.NoError(t, err, "fit output:\n%s", out)

	_, err = runCLI(t, "evaluate", "--model", modelPath, "--data", csvPath, "--target", "nope")
	assert.Error(t, err, "unknown target column")
}
