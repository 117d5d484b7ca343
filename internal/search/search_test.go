package search

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"docdex/internal/logging"
	"docdex/internal/storage"
)

func setupCorpus(t *testing.T, files map[string]string) *Engine {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}

	logger, _ := logging.NewTestLogger()
	st := storage.NewManager(root, 10000, []string{".md", ".txt"}, logger)
	return NewEngine(st, 200, 7, logger)
}

func TestSearchEmptyQuery(t *testing.T) {
	// The docs directory deliberately does not exist: an empty query must
	// short-circuit before any filesystem access.
	logger, _ := logging.NewTestLogger()
	st := storage.NewManager(filepath.Join(t.TempDir(), "missing"), 10000, []string{".md"}, logger)
	engine := NewEngine(st, 200, 7, logger)

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := engine.Search(query)
		var empty *EmptyQueryError
		if !errors.As(err, &empty) {
			t.Errorf("Search(%q): expected EmptyQueryError, got %T: %v", query, err, err)
		}
	}
}

func TestSearchMissingCorpus(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	st := storage.NewManager(filepath.Join(t.TempDir(), "missing"), 10000, []string{".md"}, logger)
	engine := NewEngine(st, 200, 7, logger)

	_, err := engine.Search("anything")
	var unavailable *storage.NotAvailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("Expected NotAvailableError, got %T: %v", err, err)
	}
}

func TestSearchRankOrdering(t *testing.T) {
	engine := setupCorpus(t, map[string]string{
		"prints/bed_mesh.md":  "# Bed Mesh\n\nCalibration guide.\n",
		"Config_Reference.md": "# Configuration\n\n## bed_mesh\n\nSection for the bed_mesh module.\n",
		"troubleshooting.md":  "If bed_mesh probing fails, check the probe offsets.\n",
		"unrelated.md":        "Nothing relevant here.\n",
	})

	results, err := engine.Search("bed_mesh")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d: %+v", len(results), results)
	}

	if results[0].Path != filepath.Join("prints", "bed_mesh.md") || results[0].Rank != 1 {
		t.Errorf("Expected filename match first with rank 1, got %+v", results[0])
	}
	if results[1].Path != "Config_Reference.md" || results[1].Rank != 2 {
		t.Errorf("Expected heading match second with rank 2, got %+v", results[1])
	}
	if results[2].Path != "troubleshooting.md" || results[2].Rank != 3 {
		t.Errorf("Expected body match third with rank 3, got %+v", results[2])
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	engine := setupCorpus(t, map[string]string{
		"guide.md": "# Extruder Calibration\n\nSteps to calibrate the EXTRUDER.\n",
	})

	for _, query := range []string{"extruder", "EXTRUDER", "Extruder"} {
		results, err := engine.Search(query)
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", query, err)
		}
		if len(results) != 1 {
			t.Errorf("Search(%q): expected 1 result, got %d", query, len(results))
		}
	}
}

// A term that appears only inside a heading line must produce a heading match
// and no body match for that same occurrence.
func TestSearchHeadingOccurrenceNotDoubleCounted(t *testing.T) {
	engine := setupCorpus(t, map[string]string{
		"doc.md": "intro text\n\n## Resonance Compensation\n\nbody without the term\n",
	})

	results, err := engine.Search("resonance")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Rank != 2 {
		t.Errorf("Expected rank 2 for heading-only match, got %d", results[0].Rank)
	}
	if !strings.Contains(results[0].Snippet, "Resonance Compensation") {
		t.Errorf("Expected heading snippet, got %q", results[0].Snippet)
	}
}

func TestSearchHeadingRankBeatsBodyOccurrences(t *testing.T) {
	// The term appears in the body before it appears in a heading: the rank
	// must still be 2, and the snippet must come from the earliest match.
	engine := setupCorpus(t, map[string]string{
		"doc.md": "The probe is mentioned here first.\n\n# Probe Setup\n\nmore text\n",
	})

	results, err := engine.Search("probe")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Rank != 2 {
		t.Errorf("Expected rank 2, got %d", results[0].Rank)
	}
	if !strings.Contains(results[0].Snippet, "mentioned here first") {
		t.Errorf("Expected snippet from the earliest occurrence, got %q", results[0].Snippet)
	}
}

func TestSearchFilenameOnlyMatchSnippet(t *testing.T) {
	long := strings.Repeat("a", 300)
	engine := setupCorpus(t, map[string]string{
		"kinematics.md": long,
	})

	results, err := engine.Search("kinematics")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Rank != 1 {
		t.Errorf("Expected rank 1, got %d", results[0].Rank)
	}
	want := strings.Repeat("a", 200) + "..."
	if results[0].Snippet != want {
		t.Errorf("Expected first %d characters with ellipsis, got %q", 200, results[0].Snippet)
	}
}

func TestSearchShortDocumentSnippetNotTruncated(t *testing.T) {
	engine := setupCorpus(t, map[string]string{
		"short.md": "tiny",
	})

	results, err := engine.Search("short")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Snippet != "tiny" {
		t.Errorf("Expected full content without ellipsis, got %q", results[0].Snippet)
	}
}

func TestSearchResultCap(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 12; i++ {
		files[filepath.Join("dir", "file"+string(rune('a'+i))+".md")] = "the term widget appears here\n"
	}
	engine := setupCorpus(t, files)

	results, err := engine.Search("widget")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 7 {
		t.Errorf("Expected results capped at 7, got %d", len(results))
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	engine := setupCorpus(t, map[string]string{
		"a.md": "# Stepper\n\nstepper motor wiring\n",
		"b.md": "stepper current tuning\n",
	})

	first, err := engine.Search("stepper")
	if err != nil {
		t.Fatalf("First search failed: %v", err)
	}
	second, err := engine.Search("stepper")
	if err != nil {
		t.Fatalf("Second search failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Repeated searches returned different results:\n%+v\n%+v", first, second)
	}
}

func TestSearchNoMatches(t *testing.T) {
	engine := setupCorpus(t, map[string]string{
		"doc.md": "some content\n",
	})

	results, err := engine.Search("zzzznotthere")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
	if got := FormatResults(results); got != "No results found." {
		t.Errorf("Expected 'No results found.', got %q", got)
	}
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{Rank: 1, Path: "a.md", Snippet: "snippet a"},
		{Rank: 2, Path: "b/c.md", Snippet: "snippet c"},
	}

	got := FormatResults(results)
	want := "## a.md\nsnippet a\n\n## b/c.md\nsnippet c\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestIsHeadingLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"# Title", true},
		{"###### Deep", true},
		{"####### TooDeep", false},
		{"#NoSpace", false},
		{"#", false},
		{"#\tTabbed", true},
		{"plain text", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isHeadingLine([]rune(tt.line)); got != tt.want {
			t.Errorf("isHeadingLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestRuneIndex(t *testing.T) {
	tests := []struct {
		name     string
		haystack string
		needle   string
		from     int
		want     int
	}{
		{"found at start", "hello world", "hello", 0, 0},
		{"found later", "hello world", "world", 0, 6},
		{"respects from", "abcabc", "abc", 1, 3},
		{"not found", "hello", "xyz", 0, -1},
		{"empty needle", "hello", "", 0, -1},
		{"multibyte offsets", "日本語テスト", "テスト", 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runeIndex([]rune(tt.haystack), []rune(tt.needle), tt.from)
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
