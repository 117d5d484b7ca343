// Package search implements ranked full-text search over the documentation
// corpus.
//
// There is no persistent index: every query re-walks the corpus, which is
// small enough (a few hundred documents) that a full scan per query is
// acceptable. Matching is rune-based so all offsets are character offsets,
// consistent with the character-addressed pagination of the reader.
//
// Results are ranked by the best field matched per document: filename (1)
// beats heading (2) beats body text (3). Each document contributes at most
// one result carrying its earliest match as the representative snippet.
package search

import (
	"os"
	"sort"
	"strings"
	"unicode"

	"docdex/internal/logging"
	"docdex/internal/storage"
)

// heading snippets carry this many runes of context on each side of the line.
const headingContext = 50

// EmptyQueryError indicates a search was requested with no query text.
type EmptyQueryError struct{}

func (e *EmptyQueryError) Error() string {
	return "Please provide a search query."
}

// Result is a single ranked search hit.
type Result struct {
	Rank    int    // 1 = filename match, 2 = heading match, 3 = body-only
	Path    string // path relative to the docs directory
	Snippet string // excerpt around the earliest match
}

type matchKind int

const (
	matchHeading matchKind = iota
	matchBody
)

// match records one occurrence inside a document, in rune offsets.
type match struct {
	start   int
	end     int
	kind    matchKind
	snippet string
}

// Engine scans the corpus per query through the storage manager's safety
// boundary.
type Engine struct {
	storage       *storage.Manager
	snippetLength int
	maxResults    int
	logger        *logging.AppLogger
}

// NewEngine creates a search engine over the given storage manager.
func NewEngine(st *storage.Manager, snippetLength, maxResults int, logger *logging.AppLogger) *Engine {
	return &Engine{
		storage:       st,
		snippetLength: snippetLength,
		maxResults:    maxResults,
		logger:        logger,
	}
}

// Search scans every supported document under the docs directory and returns
// the top-ranked matches for query.
//
// An empty or whitespace-only query fails with EmptyQueryError before any
// filesystem access. A missing docs directory fails with
// storage.NotAvailableError. Documents that cannot be read are skipped, never
// fatal for the query.
func (e *Engine) Search(query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &EmptyQueryError{}
	}
	if err := e.storage.RequireAvailable(); err != nil {
		return nil, err
	}

	queryLower := lowerRunes([]rune(query))

	files, err := e.storage.ListFiles()
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, relPath := range files {
		res, ok := e.scanDocument(relPath, queryLower)
		if ok {
			results = append(results, res)
		}
	}

	// Stable: ties keep walk-encounter order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Rank < results[j].Rank
	})

	if len(results) > e.maxResults {
		results = results[:e.maxResults]
	}

	e.logger.Debug("Search completed", "query", query, "results", len(results))
	return results, nil
}

// scanDocument matches one document against the query and, when it matches,
// produces its single ranked result.
func (e *Engine) scanDocument(relPath string, queryLower []rune) (Result, bool) {
	filenameMatch := runeIndex(lowerRunes([]rune(relPath)), queryLower, 0) >= 0

	target, err := e.storage.ResolvePath(relPath)
	if err != nil {
		return Result{}, false
	}
	data, err := os.ReadFile(target)
	if err != nil {
		// Permission error or a race with an external sync; skip the file.
		return Result{}, false
	}

	content := []rune(string(data))
	contentLower := lowerRunes(content)

	headings, ranges := e.headingMatches(content, contentLower, queryLower)
	bodies := e.bodyMatches(content, contentLower, queryLower, ranges)

	matches := append(headings, bodies...)
	if len(matches) == 0 && !filenameMatch {
		return Result{}, false
	}

	rank := 3
	if filenameMatch {
		rank = 1
	} else {
		for _, m := range matches {
			if m.kind == matchHeading {
				rank = 2
				break
			}
		}
	}

	return Result{
		Rank:    rank,
		Path:    relPath,
		Snippet: e.bestSnippet(content, matches),
	}, true
}

// headingMatches scans line by line for markdown headings (one to six '#'
// runes followed by whitespace) containing the query. It returns the matches
// and the rune-offset ranges of the matched heading lines, used to exclude
// those occurrences from body matching.
func (e *Engine) headingMatches(content, contentLower, queryLower []rune) ([]match, [][2]int) {
	var matches []match
	var ranges [][2]int

	lineStart := 0
	for lineStart <= len(content) {
		lineEnd := lineStart
		for lineEnd < len(content) && content[lineEnd] != '\n' {
			lineEnd++
		}

		if isHeadingLine(content[lineStart:lineEnd]) &&
			runeIndex(contentLower[lineStart:lineEnd], queryLower, 0) >= 0 {
			snipStart := max(0, lineStart-headingContext)
			snipEnd := min(len(content), lineEnd+headingContext)
			matches = append(matches, match{
				start:   lineStart,
				end:     lineEnd,
				kind:    matchHeading,
				snippet: strings.TrimSpace(string(content[snipStart:snipEnd])),
			})
			ranges = append(ranges, [2]int{lineStart, lineEnd})
		}

		lineStart = lineEnd + 1
	}

	return matches, ranges
}

// bodyMatches finds every occurrence of the query in the document text,
// discarding occurrences that fall entirely inside an already-matched heading
// line so headings are not double-counted.
func (e *Engine) bodyMatches(content, contentLower, queryLower []rune, headingRanges [][2]int) []match {
	var matches []match

	half := e.snippetLength / 2
	from := 0
	for {
		idx := runeIndex(contentLower, queryLower, from)
		if idx < 0 {
			break
		}
		end := idx + len(queryLower)
		from = idx + 1

		if insideAny(idx, end, headingRanges) {
			continue
		}

		snipStart := max(0, idx-half)
		snipEnd := min(len(content), end+half)
		matches = append(matches, match{
			start:   idx,
			end:     end,
			kind:    matchBody,
			snippet: strings.TrimSpace(string(content[snipStart:snipEnd])),
		})
	}

	return matches
}

// bestSnippet picks the earliest match as the representative snippet. For
// filename-only matches it falls back to the start of the document.
func (e *Engine) bestSnippet(content []rune, matches []match) string {
	if len(matches) > 0 {
		best := matches[0]
		for _, m := range matches[1:] {
			if m.start < best.start {
				best = m
			}
		}
		return best.snippet
	}

	if len(content) > e.snippetLength {
		return string(content[:e.snippetLength]) + "..."
	}
	return string(content)
}

// FormatResults renders results as "## <path>" blocks for tool output.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, "## "+r.Path+"\n"+r.Snippet+"\n")
	}
	return strings.Join(blocks, "\n")
}

// isHeadingLine reports whether a line starts with one to six '#' runes
// followed by whitespace.
func isHeadingLine(line []rune) bool {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n < 1 || n > 6 || n >= len(line) {
		return false
	}
	return line[n] == ' ' || line[n] == '\t'
}

// insideAny reports whether [start,end) falls entirely inside one of the ranges.
func insideAny(start, end int, ranges [][2]int) bool {
	for _, r := range ranges {
		if start >= r[0] && end <= r[1] {
			return true
		}
	}
	return false
}

// runeIndex returns the first occurrence of needle in haystack at or after
// from, or -1. Naive scan; fine for corpus-sized inputs.
func runeIndex(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		found := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				found = false
				break
			}
		}
		if found {
			return i
		}
	}
	return -1
}

func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}
