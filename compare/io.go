package compare

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CandidateParseOptions selects which CSV/TSV column holds candidate texts.
// Column accepts a header name or "#N" for a zero-based index.
type CandidateParseOptions struct {
	Column string
}

// ParseCandidateFile reads candidate texts from a file. CSV and TSV files are
// read column-wise; anything else is treated as one candidate per line.
// Order is preserved and duplicates are kept, since ranking ties break on
// first-seen corpus position.
func ParseCandidateFile(path string) ([]string, error) {
	return ParseCandidateFileWithOptions(path, CandidateParseOptions{})
}

// ParseCandidateFileWithOptions reads candidates honoring a caller provided
// column selection.
func ParseCandidateFileWithOptions(path string, opts CandidateParseOptions) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseDelimitedCandidates(path, ',', opts)
	case ".tsv":
		return parseDelimitedCandidates(path, '\t', opts)
	default:
		return parsePlainTextCandidates(path)
	}
}

func parsePlainTextCandidates(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidate file: %w", err)
	}
	defer f.Close()
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := cleanCell(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan candidate file: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no candidate texts found in %s", path)
	}
	return out, nil
}

func parseDelimitedCandidates(path string, comma rune, opts CandidateParseOptions) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty candidate file")
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	col, start, err := resolveCandidateColumn(header, opts.Column)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		value := cleanCell(row[col])
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no candidate texts found in %s", path)
	}
	return out, nil
}

// resolveCandidateColumn maps a column selector to an index and reports how
// many header rows to skip. Without a selector the first column is used and
// a lone header row is kept as data only when it looks like a plain text.
func resolveCandidateColumn(header []string, selector string) (int, int, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return 0, 0, nil
	}
	if strings.HasPrefix(selector, "#") {
		idx, err := strconv.Atoi(selector[1:])
		if err != nil || idx < 0 {
			return 0, 0, fmt.Errorf("invalid column selector %q", selector)
		}
		return idx, 0, nil
	}
	for i, name := range header {
		if strings.EqualFold(name, selector) {
			return i, 1, nil
		}
	}
	return 0, 0, fmt.Errorf("column %q not found in header", selector)
}

func cleanCell(cell string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cell), "\ufeff"))
}
