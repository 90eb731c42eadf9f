package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// parseBinPathList reads the flat bin-path list format (spec §6): one
// line per user bin, its source files separated by spaces. Blank
// lines are skipped.
func parseBinPathList(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var bins [][]string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		files := strings.Fields(line)
		bins = append(bins, files)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: line %d: %w", path, lineNo, err)
	}
	return bins, nil
}
