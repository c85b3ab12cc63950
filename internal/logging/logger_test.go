package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	t.Cleanup(func() { UseLogger(zap.NewNop()) })
	return logs
}

// TestAllCategoriesLog checks that every category writes through the shared core.
func TestAllCategoriesLog(t *testing.T) {
	logs := observe(t)

	categories := []Category{
		CategoryBoot,
		CategoryDecode,
		CategorySolver,
		CategoryExclusion,
		CategorySession,
		CategoryStore,
		CategoryCollab,
		CategoryWatch,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
	}

	if got, want := logs.Len(), 2*len(categories); got != want {
		t.Fatalf("expected %d entries, got %d", want, got)
	}
	for _, entry := range logs.All() {
		if entry.LoggerName == "" {
			t.Errorf("entry %q has no category name", entry.Message)
		}
	}
}

func TestConvenienceFunctions(t *testing.T) {
	logs := observe(t)

	Boot("boot %d", 1)
	Decode("decode")
	Solver("solver")
	Session("session")
	Store("store")
	Collab("collab")
	Watch("watch")

	if logs.FilterLoggerName("solver").Len() != 1 {
		t.Error("expected one solver entry")
	}
	if msg := logs.FilterLoggerName("boot").All()[0].Message; msg != "boot 1" {
		t.Errorf("expected formatted message, got %q", msg)
	}
}

func TestCategoryToggle(t *testing.T) {
	logs := observe(t)

	mu.Lock()
	opts.Categories = map[string]bool{"store": false}
	mu.Unlock()

	if IsCategoryEnabled(CategoryStore) {
		t.Error("store category should be disabled")
	}
	if !IsCategoryEnabled(CategorySolver) {
		t.Error("unlisted categories should stay enabled")
	}

	Store("should not appear")
	Solver("should appear")

	if logs.FilterLoggerName("store").Len() != 0 {
		t.Error("disabled category produced output")
	}
	if logs.FilterLoggerName("solver").Len() != 1 {
		t.Error("enabled category produced no output")
	}
}

func TestInitializeWritesFile(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(Options{
		Level:     "debug",
		Format:    "json",
		File:      "logs/spotter.log",
		Dir:       dir,
		DebugMode: true,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { UseLogger(zap.NewNop()) })

	Get(CategorySolver).Info("hello %s", "file")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "logs", "spotter.log"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	if err := Initialize(Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestTimer(t *testing.T) {
	logs := observe(t)

	timer := StartTimer(CategorySolver, "recompute")
	time.Sleep(time.Millisecond)
	if elapsed := timer.Stop(); elapsed <= 0 {
		t.Error("expected positive duration")
	}

	slow := StartTimer(CategorySolver, "slow op")
	time.Sleep(2 * time.Millisecond)
	slow.StopWithThreshold(time.Nanosecond)

	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Error("expected threshold warning")
	}
}

func TestAuditTransition(t *testing.T) {
	logs := observe(t)

	AuditWithChain("chain-1").Transition(AuditSolveSubmit, 2, "BETA,GAMMA", nil)
	AuditWithChain("chain-1").Recompute(5*time.Millisecond, 12, nil)

	entries := logs.FilterLoggerName("audit").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["chain"] != "chain-1" {
		t.Errorf("expected chain field, got %v", fields["chain"])
	}
	if fields["node"] != int64(2) {
		t.Errorf("expected node=2, got %v", fields["node"])
	}
	if entries[1].ContextMap()["count"] != int64(12) {
		t.Errorf("expected candidate count, got %v", entries[1].ContextMap()["count"])
	}
}
