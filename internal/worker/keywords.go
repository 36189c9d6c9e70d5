package worker

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// ReadKeywords reads one keyword per line. Blank lines and lines starting
// with '#' are skipped, surrounding whitespace is trimmed and repeated
// keywords keep their first position.
func ReadKeywords(r io.Reader) ([]string, error) {
	var keywords []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		keywords = append(keywords, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read keywords")
	}
	return keywords, nil
}

// Dedupe trims keywords and drops blanks and repeats, preserving order.
func Dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
