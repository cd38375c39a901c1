package cmd

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// expandPaths expands glob patterns, then appends the paths listed in the argument file.
//
// A pattern matching nothing is kept as is, so that the operation reports the path as missing.
// Relative paths are made absolute against the current directory.
func expandPaths(patterns []string, argFile string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		paths = append(paths, matches...)
	}

	if argFile != "" {
		listed, err := readArgFile(argFile)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}

	for i, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		paths[i] = abs
	}
	return paths, nil
}

func readArgFile(name string) ([]string, error) {
	var r io.Reader
	if name == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	}

	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths, scanner.Err()
}
