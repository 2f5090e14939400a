package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.record(TraceEntry{Type: TraceStep, Op: OpAddItem, Args: map[string]any{"table": "T01", "product": "Tea", "qty": 2}, Outcome: "ok"})
	r.record(TraceEntry{Type: TraceEvent, Event: "table_total_changed T01 300"})
	r.record(TraceEntry{Type: TraceStep, Op: "advance", Args: map[string]any{"by": 90 * time.Second}})
	return r
}

func TestTraceSnapshot(t *testing.T) {
	r := sampleResult()
	assert.Equal(t, []int{1, 2, 3}, []int{r.Trace[0].Seq, r.Trace[1].Seq, r.Trace[2].Seq})

	want := "# sample\n" +
		"step add_item product=Tea qty=2 table=T01 -> ok\n" +
		"event table_total_changed T01 300\n" +
		"step advance by=1m30s\n"
	assert.Equal(t, want, string(TraceSnapshot("sample", r)))
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "merge.golden"),
		GoldenPath(filepath.Join("scenarios", "merge.yaml")))
}

func TestWriteAndCompareGolden(t *testing.T) {
	dir := t.TempDir()
	path := GoldenPath(filepath.Join(dir, "sample.yaml"))

	_, err := CompareGolden(path, "sample", sampleResult())
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, WriteGolden(path, "sample", sampleResult()))
	match, err := CompareGolden(path, "sample", sampleResult())
	require.NoError(t, err)
	assert.True(t, match)

	changed := sampleResult()
	changed.record(TraceEntry{Type: TraceEvent, Event: "catalog_changed"})
	match, err = CompareGolden(path, "sample", changed)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("step %d failed", 2)
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"step 2 failed"}, r.Errors)
}
