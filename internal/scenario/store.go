// Package scenario владеет раскладкой директории сценария и всем файловым
// вводом-выводом артефактов пайплайна.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

// Имена артефактов внутри директории сценария.
const (
	RequestsFile    = "requests.json"
	ManifestFile    = "scenario.json"
	EndpointsFile   = "endpoints.json"
	FormsFile       = "forms.json"
	TestsFile       = "tests.json"
	ResultsFile     = "test_results.json"
	FindingsFile    = "findings.json"
	TriageFile      = "triage.json"
	ReportMarkdown  = "report.md"
	ReportJSONFile  = "report.json"
	ToolName        = "surfacerecon"
	ToolVersion     = "1.0"
	dirTimestampFmt = "20060102_150405"
)

// Store — файловое хранилище одного сценария.
type Store struct {
	dir string
}

// Open attaches to an existing scenario directory.
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scenario path %s is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

// Create makes a fresh timestamped scenario directory under root and writes
// the run manifest into it.
func Create(root string, seed int64) (*Store, error) {
	dir := filepath.Join(root, time.Now().Format(dirTimestampFmt))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scenario directory %s: %w", dir, err)
	}
	s := &Store{dir: dir}
	if err := s.SaveManifest(NewManifest(seed)); err != nil {
		return nil, err
	}
	return s, nil
}

// NewManifest identifies a run: fresh UUID, tool name and version, creation
// time, and the generator seed in effect.
func NewManifest(seed int64) *models.Manifest {
	return &models.Manifest{
		RunID:     uuid.NewString(),
		Tool:      ToolName,
		Version:   ToolVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Seed:      seed,
	}
}

func (s *Store) Dir() string { return s.dir }

// Path returns the absolute location of an artifact inside the scenario.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Has reports whether an artifact already exists.
func (s *Store) Has(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// writeJSON пишет артефакт атомарно: temp-файл рядом с целью, затем rename.
// Формат фиксирован: UTF-8, отступ в два пробела, без HTML-эскейпа.
func (s *Store) writeJSON(name string, v any) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode %s: %w", s.Path(name), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("read %s: %w", s.Path(name), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", s.Path(name), err)
	}
	return nil
}

// WriteText stores a non-JSON artifact (the markdown report) atomically.
func (s *Store) WriteText(name, content string) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	return nil
}

func (s *Store) SaveManifest(m *models.Manifest) error { return s.writeJSON(ManifestFile, m) }

func (s *Store) LoadManifest() (*models.Manifest, error) {
	var m models.Manifest
	if err := s.readJSON(ManifestFile, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) LoadRequests() ([]*models.CapturedRequest, error) {
	var requests []*models.CapturedRequest
	if err := s.readJSON(RequestsFile, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *Store) SaveEndpoints(endpoints []*models.Endpoint) error {
	return s.writeJSON(EndpointsFile, endpoints)
}

func (s *Store) LoadEndpoints() ([]*models.Endpoint, error) {
	var endpoints []*models.Endpoint
	if err := s.readJSON(EndpointsFile, &endpoints); err != nil {
		return nil, err
	}
	return endpoints, nil
}

func (s *Store) SaveForms(forms []*models.HTMLForm) error { return s.writeJSON(FormsFile, forms) }

func (s *Store) SaveTests(tests []*models.TestCase) error { return s.writeJSON(TestsFile, tests) }

func (s *Store) LoadTests() ([]*models.TestCase, error) {
	var tests []*models.TestCase
	if err := s.readJSON(TestsFile, &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

func (s *Store) SaveResults(results []*models.TestResult) error {
	return s.writeJSON(ResultsFile, results)
}

func (s *Store) LoadResults() ([]*models.TestResult, error) {
	var results []*models.TestResult
	if err := s.readJSON(ResultsFile, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) SaveFindings(findings []*models.Finding) error {
	return s.writeJSON(FindingsFile, findings)
}

func (s *Store) LoadFindings() ([]*models.Finding, error) {
	var findings []*models.Finding
	if err := s.readJSON(FindingsFile, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// SaveReportJSON writes the machine-readable report artifact.
func (s *Store) SaveReportJSON(v any) error { return s.writeJSON(ReportJSONFile, v) }

// SaveTriage writes the optional LLM triage artifact.
func (s *Store) SaveTriage(v any) error { return s.writeJSON(TriageFile, v) }
