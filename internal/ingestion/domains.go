package ingestion

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ParseDomainList reads one URL or domain per line. Blank lines and text
// after '#' are ignored; duplicates keep their first position.
func ParseDomainList(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// ReadDomainList parses the file at path.
func ReadDomainList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDomainList(f)
}
