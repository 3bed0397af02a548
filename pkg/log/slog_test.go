package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	mlerrors "github.com/YuminosukeSato/mlcore/pkg/errors"
)

func TestSlogProvider_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSlogProvider(&buf, LevelDebug)

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
	if entry["msg"] != "training started" {
		t.Errorf("msg = %v, want %q", entry["msg"], "training started")
	}
	if entry[OperationKey] != OperationFit {
		t.Errorf("%s = %v, want %q", OperationKey, entry[OperationKey], OperationFit)
	}
	if entry[SamplesKey] != 150.0 {
		t.Errorf("%s = %v, want 150", SamplesKey, entry[SamplesKey])
	}
}

func TestSlogProvider_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSlogProvider(&buf, LevelWarn)

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

func TestSlogProvider_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSlogProvider(&buf, LevelWarn)
	logger := provider.GetLogger()

	logger.Debug("before")
	provider.SetLevel(LevelDebug)
	logger.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("debug message should be suppressed at warn level: %s", out)
	}
	if !strings.Contains(out, "after") {
		t.Errorf("debug message should appear after lowering the level: %s", out)
	}
}

func TestSlogProvider_GetLoggerWithName(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSlogProvider(&buf, LevelInfo)

	logger := provider.GetLoggerWithName("cluster.kmeans")
	logger.Info("component message")

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0][ComponentKey] != "cluster.kmeans" {
		t.Errorf("%s = %v, want %q", ComponentKey, entries[0][ComponentKey], "cluster.kmeans")
	}
}

func TestSlogLogger_ErrorWithStacktrace(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSlogProvider(&buf, LevelError)

	err := mlerrors.NewNotFittedError("LinearRegression", "Predict")
	provider.GetLogger().Error("prediction failed", err, OperationKey, OperationPredict)

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if _, ok := entry[ErrAttrKey]; !ok {
		t.Error("expected error field in entry")
	}
	if st, ok := entry[StacktraceAttrKey].(string); !ok || st == "" {
		t.Error("expected non-empty stacktrace field for pkg/errors error")
	}
	if entry[OperationKey] != OperationPredict {
		t.Errorf("%s = %v, want %q", OperationKey, entry[OperationKey], OperationPredict)
	}
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSlogProvider(&buf, LevelInfo)

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

func TestSlogLogger_DanglingKeyDropped(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSlogProvider(&buf, LevelInfo)

	provider.GetLogger().Info("message", "lonely")

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if _, ok := entries[0]["lonely"]; ok {
		t.Errorf("dangling key should be dropped: %v", entries[0])
	}
}

func TestSlogLogger_Enabled(t *testing.T) {
	var buf bytes.Buffer
	provider := NewSlogProvider(&buf, LevelInfo)
	logger := provider.GetLogger()
	ctx := context.Background()

	if logger.Enabled(ctx, LevelDebug) {
		t.Error("debug should be disabled at info level")
	}
	if !logger.Enabled(ctx, LevelInfo) {
		t.Error("info should be enabled at info level")
	}
}

func TestNewSlogLogger_WrapsExistingLogger(t *testing.T) {
	var buf bytes.Buffer
	host := slog.New(slog.NewJSONHandler(&buf, nil))

	logger := NewSlogLogger(host)
	logger.Info("wrapped", SamplesKey, 10)

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["msg"] != "wrapped" {
		t.Errorf("msg = %v, want %q", entries[0]["msg"], "wrapped")
	}
	if entries[0][SamplesKey] != 10.0 {
		t.Errorf("%s = %v, want 10", SamplesKey, entries[0][SamplesKey])
	}
}

func TestSetProvider_SlogBackend(t *testing.T) {
	var buf bytes.Buffer
	SetProvider(NewSlogProvider(&buf, LevelDebug))
	defer SetProvider(NewZerologProvider(nil, LevelInfo))

	logger := NewEstimatorLogger("Ridge")
	logger.Info("fit complete")

	entries := parseJSONLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry[ModelNameKey] != "Ridge" {
		t.Errorf("%s = %v, want Ridge", ModelNameKey, entry[ModelNameKey])
	}
	if id, ok := entry[EstimatorIDKey].(string); !ok || len(id) != 36 {
		t.Errorf("expected UUID estimator id, got %v", entry[EstimatorIDKey])
	}
}

func TestSetupSlog_InstallsDefaultProvider(t *testing.T) {
	SetupSlog(LevelWarn)
	defer SetProvider(NewZerologProvider(nil, LevelInfo))

	logger := GetLogger()
	if _, ok := logger.(*slogLogger); !ok {
		t.Fatalf("GetLogger() = %T, want *slogLogger", logger)
	}
	ctx := context.Background()
	if logger.Enabled(ctx, LevelInfo) {
		t.Error("info should be filtered at warn level")
	}
	if !logger.Enabled(ctx, LevelError) {
		t.Error("error should pass at warn level")
	}
}
