package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is the directory, relative to a scenario file, holding its
// golden trace.
const GoldenDir = "golden"

// TraceSnapshot renders a scenario trace as golden file text: a header
// line with the scenario name, then one line per trace entry.
func TraceSnapshot(name string, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", name)
	for _, e := range result.Trace {
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// GoldenPath returns the golden file path for a scenario file:
// <dir>/golden/<base>.golden.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), GoldenDir, name+".golden")
}

// WriteGolden writes the snapshot of result to path, creating the golden
// directory if needed.
func WriteGolden(path, name string, result *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, TraceSnapshot(name, result), 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the golden file at path matches result.
// A missing golden file is reported through os.ErrNotExist.
func CompareGolden(path, name string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, TraceSnapshot(name, result)), nil
}

// RunWithGolden executes the scenario file and compares its trace against
// the golden file next to it (see GoldenPath). The scenario's own
// assertions must pass as well.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioFile string) (*Result, error) {
	t.Helper()

	scenario, err := LoadScenario(scenarioFile)
	if err != nil {
		return nil, err
	}
	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if !result.Pass {
		return result, fmt.Errorf("scenario %s failed: %s", scenario.Name, strings.Join(result.Errors, "; "))
	}

	AssertGolden(t, scenarioFile, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already computed result against the golden
// file of scenarioFile using goldie.
func AssertGolden(t *testing.T, scenarioFile, name string, result *Result) {
	t.Helper()

	golden := GoldenPath(scenarioFile)
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(golden)),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, strings.TrimSuffix(filepath.Base(golden), ".golden"), TraceSnapshot(name, result))
}
