package html

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mabhi256/jshim/internal/pipeline"
	"github.com/mabhi256/jshim/utils"
)

// Embed template files at compile time
//
//go:embed templates/template.html
var htmlTemplate string

//go:embed templates/styles.css
var cssContent string

// ReportData is everything the single-file report renders
type ReportData struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Inputs      []string  `json:"inputs"`
	Summary     Summary   `json:"summary"`
	Members     []string  `json:"members"`
	Special     []string  `json:"special"`
	Unresolved  []string  `json:"unresolved"`
	Failures    []Failure `json:"failures"`
}

type Summary struct {
	Libraries int    `json:"libraries"`
	Indexed   int    `json:"indexed"`
	Classes   int    `json:"classes"`
	Rewritten int    `json:"rewritten"`
	Artifacts int    `json:"artifacts"`
	Duration  string `json:"duration"`
}

type Failure struct {
	Path  string `json:"path"`
	Class string `json:"class,omitempty"`
	Error string `json:"error"`
}

func NewReportData(report *pipeline.Report, inputs []string) *ReportData {
	data := &ReportData{
		GeneratedAt: time.Now(),
		Inputs:      nonNil(inputs),
		Summary: Summary{
			Libraries: report.Libraries,
			Indexed:   report.Indexed,
			Classes:   report.Classes,
			Rewritten: report.Rewritten,
			Artifacts: report.Artifacts,
			Duration:  utils.FormatDuration(report.Duration),
		},
		Members:    nonNil(report.Members),
		Special:    nonNil(report.Special),
		Unresolved: nonNil(report.Unresolved),
		Failures:   make([]Failure, len(report.Failed)),
	}
	for i, f := range report.Failed {
		data.Failures[i] = Failure{Path: f.Path, Class: f.Class, Error: f.Err.Error()}
	}
	return data
}

// the page script expects arrays, never null
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// GenerateReport writes the report as JSON when outputPath ends in .json and
// as a self-contained HTML page otherwise. It returns the absolute path written.
func GenerateReport(report *pipeline.Report, inputs []string, outputPath string) (string, error) {
	if report == nil {
		return "", fmt.Errorf("invalid report data: no report")
	}

	absPath, err := GetOutputPath(outputPath)
	if err != nil {
		return "", err
	}

	data := NewReportData(report, inputs)

	var content []byte
	if strings.HasSuffix(strings.ToLower(absPath), ".json") {
		content, err = json.MarshalIndent(data, "", "  ")
	} else {
		var jsonData []byte
		jsonData, err = json.Marshal(data)
		content = []byte(generateSingleFileHTMLContent(string(jsonData)))
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal report data: %w", err)
	}

	if err := os.WriteFile(absPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return absPath, nil
}

// GetOutputPath returns a safe output path, creating directories if needed
func GetOutputPath(path string) (string, error) {
	outputPath := path
	if outputPath == "" {
		outputPath = GetDefaultOutputPath()
	}

	// Ensure a known extension
	lower := strings.ToLower(outputPath)
	if !strings.HasSuffix(lower, ".html") && !strings.HasSuffix(lower, ".json") {
		outputPath += ".html"
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", outputPath, err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return absPath, nil
}

// generateSingleFileHTMLContent creates the single-file HTML with embedded CSS
func generateSingleFileHTMLContent(jsonData string) string {
	content := htmlTemplate
	content = strings.ReplaceAll(content, "{{CSS_CONTENT}}", cssContent)
	content = strings.ReplaceAll(content, "{{JSON_DATA}}", jsonData)
	return content
}

// GetDefaultOutputPath returns a default HTML output path
func GetDefaultOutputPath() string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("jshim-report-%s.html", timestamp)
}
