package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.RulesLoaded("shared", 3)
	r.RulesLoaded("shared", 2)
	r.ParseFailures("next", 1)
	r.Violations("shared", 4)
	r.TestCases("bad", 2)
	r.TestCases("good", 5)
	r.Sections("next", 8)
	r.Sections("next", 7)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.rulesLoaded.WithLabelValues("shared")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.parseFailures.WithLabelValues("next")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.violations.WithLabelValues("shared")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.testCases.WithLabelValues("bad")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.testCases.WithLabelValues("good")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.sections.WithLabelValues("next")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.RulesLoaded("shared", 1)

	path := filepath.Join(t.TempDir(), "metrics", "rulebook.prom")
	now := time.Unix(1_700_000_000, 0)
	require.NoError(t, r.WriteTextfile(path, now))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rulebook_rules_loaded_total{corpus="shared"} 1`)
	assert.Contains(t, string(data), "rulebook_last_run_timestamp_seconds")
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.RulesLoaded("shared", 1)
		r.ParseFailures("shared", 1)
		r.Violations("shared", 1)
		r.TestCases("bad", 1)
		r.Sections("shared", 1)
	})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile("/nonexistent/never-written.prom", time.Now()))
}
