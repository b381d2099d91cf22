// Package file contains utilities related to file operations (e.g. reading files).
package file

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// ReadURLFile loads URLs from a file, one per line, ignoring blank lines and
// '#' comment lines.
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file %q: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.E("failed to close file %v due to error: %v", path, err)
		}
	}()

	var urls []string
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue // skip blank lines and comments
		}
		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file %q: %w", path, err)
	}
	return urls, nil
}
