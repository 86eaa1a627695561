package html

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mabhi256/jshim/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		Libraries:  1,
		Indexed:    40,
		Classes:    12,
		Rewritten:  7,
		Members:    []string{"com.app.Page"},
		Artifacts:  13,
		Unresolved: []string{"android.app.Activity"},
		Failed: []*pipeline.ClassError{
			{Path: "com/app/Bad.class", Class: "com.app.Bad", Err: errors.New("cycle </script>")},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestGenerateReport_JSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "run.json")

	path, err := GenerateReport(sampleReport(), []string{"build/classes"}, out)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var data ReportData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, []string{"build/classes"}, data.Inputs)
	assert.Equal(t, 40, data.Summary.Indexed)
	assert.Equal(t, "1.5s", data.Summary.Duration)
	assert.Equal(t, []string{"com.app.Page"}, data.Members)
	assert.Equal(t, []string{}, data.Special)
	assert.Equal(t, []Failure{{Path: "com/app/Bad.class", Class: "com.app.Bad", Error: "cycle </script>"}}, data.Failures)
}

func TestGenerateReport_HTML(t *testing.T) {
	out := filepath.Join(t.TempDir(), "run")

	path, err := GenerateReport(sampleReport(), nil, out)
	require.NoError(t, err)
	assert.Equal(t, out+".html", path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(raw)

	assert.Contains(t, page, "com.app.Page")
	assert.Contains(t, page, ".card")
	assert.NotContains(t, page, "{{JSON_DATA}}")
	assert.NotContains(t, page, "{{CSS_CONTENT}}")
	assert.Equal(t, 2, strings.Count(page, "</script>"), "error text must not close the data block")
}

func TestGenerateReport_NilReport(t *testing.T) {
	_, err := GenerateReport(nil, nil, filepath.Join(t.TempDir(), "x.html"))
	assert.Error(t, err)
}

func TestGetDefaultOutputPath(t *testing.T) {
	path := GetDefaultOutputPath()
	assert.True(t, strings.HasPrefix(path, "jshim-report-"))
	assert.True(t, strings.HasSuffix(path, ".html"))
}
