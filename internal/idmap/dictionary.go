package idmap

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadDictionary reads symbol<TAB>id lines for a StaticMapper. Blank lines
// and lines starting with '#' are ignored; a repeated symbol keeps its
// last id.
func ReadDictionary(r io.Reader) (map[string]string, error) {
	dict := make(map[string]string)
	br := bufio.NewReader(r)
	lineNum := 0
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lineNum++
			line = strings.TrimRight(line, "\r\n")
			if line != "" && !strings.HasPrefix(line, "#") {
				fields := strings.Split(line, "\t")
				if len(fields) < 2 || strings.TrimSpace(fields[0]) == "" || strings.TrimSpace(fields[1]) == "" {
					return nil, fmt.Errorf("dictionary line %d: expected symbol and id", lineNum)
				}
				dict[strings.TrimSpace(fields[0])] = strings.TrimSpace(fields[1])
			}
		}
		if err == io.EOF {
			return dict, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read dictionary: %w", err)
		}
	}
}
