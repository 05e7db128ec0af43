package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// readIdentifierFile returns one raw identifier per non-empty line of path.
// Lines starting with # are comments. A path of "-" reads stdin.
func readIdentifierFile(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open identifier file: %w", err)
		}
		defer f.Close()
		r = f
	}
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifier file: %w", err)
	}
	return out, nil
}

func gatherIdentifiers(args []string, file string, stdin io.Reader) ([]string, error) {
	raws := append([]string(nil), args...)
	if strings.TrimSpace(file) != "" {
		fromFile, err := readIdentifierFile(strings.TrimSpace(file), stdin)
		if err != nil {
			return nil, err
		}
		raws = append(raws, fromFile...)
	}
	return raws, nil
}
