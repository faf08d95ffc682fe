// Package accounts loads the ordered account-folder list and the ignore
// list that filters it.
package accounts

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ReadFolders reads one folder label per line, skipping blank lines and
// preserving order.
func ReadFolders(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	defer f.Close()

	var folders []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		folders = append(folders, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	return folders, nil
}

// ReadIgnored loads the ignore list. A missing file is an empty set, not an
// error: ignoring folders is optional.
func ReadIgnored(path string) (map[string]bool, error) {
	if path == "" {
		return map[string]bool{}, nil
	}
	lines, err := ReadFolders(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	ignored := make(map[string]bool, len(lines))
	for _, l := range lines {
		ignored[l] = true
	}
	return ignored, nil
}

// Filter removes ignored folders, preserving order.
func Filter(folders []string, ignored map[string]bool) []string {
	if len(ignored) == 0 {
		return folders
	}
	out := folders[:0:0]
	for _, f := range folders {
		if !ignored[f] {
			out = append(out, f)
		}
	}
	return out
}
