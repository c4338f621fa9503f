package batch

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadTargetIDs reads one target ID per line. Blank lines and lines
// starting with '#' are skipped, surrounding whitespace is trimmed and
// repeated IDs are kept only at their first position.
func ReadTargetIDs(r io.Reader) ([]string, error) {
	var (
		ids  []string
		seen = make(map[string]struct{})
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading target IDs: %w", err)
	}
	return ids, nil
}
