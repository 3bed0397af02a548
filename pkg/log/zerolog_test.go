package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	mlerrors "github.com/YuminosukeSato/mlcore/pkg/errors"
)

func parseJSONLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestZerologProvider_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelDebug)

	logger := provider.GetLogger()
	logger.Info("training started",
		OperationKey, OperationFit,
		SamplesKey, 150,
		FeaturesKey, 4,
	)

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry["message"] != "training started" {
		t.Errorf("message = %v, want %q", entry["message"], "training started")
	}
	if entry[OperationKey] != OperationFit {
		t.Errorf("%s = %v, want %q", OperationKey, entry[OperationKey], OperationFit)
	}
	if entry[SamplesKey] != 150.0 {
		t.Errorf("%s = %v, want 150", SamplesKey, entry[SamplesKey])
	}
}

func TestZerologProvider_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelWarn)

	logger := provider.GetLogger()
	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn")
	logger.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden debug") || strings.Contains(out, "hidden info") {
		t.Errorf("messages below warn level should be suppressed: %s", out)
	}
	if !strings.Contains(out, "visible warn") || !strings.Contains(out, "visible error") {
		t.Errorf("warn and error messages should be emitted: %s", out)
	}
}

func TestZerologProvider_GetLoggerWithName(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelInfo)

	logger := provider.GetLoggerWithName("linear.regression")
	logger.Info("component message")

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0][ComponentKey] != "linear.regression" {
		t.Errorf("%s = %v, want %q", ComponentKey, entries[0][ComponentKey], "linear.regression")
	}
}

func TestZerologLogger_ErrorWithStacktrace(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelError)

	err := mlerrors.NewNotFittedError("LinearRegression", "Predict")
	provider.GetLogger().Error("prediction failed", err, OperationKey, OperationPredict)

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if _, ok := entry["error"]; !ok {
		t.Error("expected error field in entry")
	}
	if st, ok := entry[StacktraceAttrKey].(string); !ok || st == "" {
		t.Error("expected non-empty stacktrace field for cockroachdb error")
	}
	if entry[OperationKey] != OperationPredict {
		t.Errorf("%s = %v, want %q", OperationKey, entry[OperationKey], OperationPredict)
	}
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelInfo)

	logger := provider.GetLogger().With(ModelNameKey, "Ridge", PhaseKey, PhaseTraining)
	logger.Info("first")
	logger.Info("second")

	entries := parseJSONLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry[ModelNameKey] != "Ridge" {
			t.Errorf("entry %d: %s = %v, want Ridge", i, ModelNameKey, entry[ModelNameKey])
		}
		if entry[PhaseKey] != PhaseTraining {
			t.Errorf("entry %d: %s = %v, want %q", i, PhaseKey, entry[PhaseKey], PhaseTraining)
		}
	}
}

func TestZerologLogger_Enabled(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelInfo)
	logger := provider.GetLogger()
	ctx := context.Background()

	if logger.Enabled(ctx, LevelDebug) {
		t.Error("debug should be disabled at info level")
	}
	if !logger.Enabled(ctx, LevelInfo) {
		t.Error("info should be enabled at info level")
	}
	if !logger.Enabled(ctx, LevelError) {
		t.Error("error should be enabled at info level")
	}
}

func TestNewEstimatorLogger_AttachesIdentity(t *testing.T) {
	var buf bytes.Buffer
	SetProvider(NewZerologProvider(&buf, LevelInfo))
	defer SetProvider(NewZerologProvider(nil, LevelInfo))

	logger := NewEstimatorLogger("KMeans")
	logger.Info("fit complete")

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry[ModelNameKey] != "KMeans" {
		t.Errorf("%s = %v, want KMeans", ModelNameKey, entry[ModelNameKey])
	}
	id, ok := entry[EstimatorIDKey].(string)
	if !ok || len(id) != 36 {
		t.Errorf("expected UUID estimator id, got %v", entry[EstimatorIDKey])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Level
		wantErr bool
	}{
		{name: "debug", input: "debug", want: LevelDebug},
		{name: "info", input: "info", want: LevelInfo},
		{name: "warn", input: "warn", want: LevelWarn},
		{name: "error", input: "error", want: LevelError},
		{name: "unknown", input: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInstallWarningBridge(t *testing.T) {
	var buf bytes.Buffer
	SetProvider(NewZerologProvider(&buf, LevelInfo))
	defer SetProvider(NewZerologProvider(nil, LevelInfo))

	InstallWarningBridge()
	defer mlerrors.SetZerologWarnFunc(nil)

	mlerrors.Warn(mlerrors.NewConvergenceWarning("GradientDescent", 500, "gradient still large"))

	out := buf.String()
	if !strings.Contains(out, "GradientDescent") {
		t.Errorf("expected warning algorithm in log output, got: %s", out)
	}
	if !strings.Contains(out, "ConvergenceWarning") {
		t.Errorf("expected structured warning type in log output, got: %s", out)
	}
}
