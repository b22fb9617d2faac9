package gmt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseList reads one gene per line. Blank lines are skipped and duplicates
// keep their first position.
func ParseList(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	seen := make(GeneSet)
	var genes []string
	for {
		line, err := br.ReadString('\n')
		if g := strings.TrimSpace(line); g != "" && !seen.Contains(g) {
			seen.Add(g)
			genes = append(genes, g)
		}
		if err == io.EOF {
			return genes, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read gene list: %w", err)
		}
	}
}

// ReadList reads a gene list file.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene list: %w", err)
	}
	defer f.Close()
	return ParseList(f)
}
