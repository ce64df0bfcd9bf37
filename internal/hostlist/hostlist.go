package hostlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Parse accepts either a comma-separated list of hostnames or an @file
// reference with one hostname per line. Blank lines and #-comments in
// files are skipped. Duplicate hostnames are collapsed, keeping first
// position.
func Parse(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("host list is empty")
	}

	var raw []string
	if strings.HasPrefix(spec, "@") {
		lines, err := readLines(strings.TrimPrefix(spec, "@"))
		if err != nil {
			return nil, err
		}
		raw = lines
	} else {
		raw = strings.Split(spec, ",")
	}

	seen := make(map[string]bool)
	hosts := make([]string, 0, len(raw))
	for _, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		hosts = append(hosts, h)
	}

	if len(hosts) == 0 {
		return nil, fmt.Errorf("host list %q contains no hostnames", spec)
	}
	return hosts, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read host file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan host file: %w", err)
	}
	return lines, nil
}
