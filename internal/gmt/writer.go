package gmt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// WriteOption configures Write.
type WriteOption func(*writeConfig)

type writeConfig struct {
	sortGenes bool
}

// SortGenes writes the genes of each line in lexical order.
func SortGenes() WriteOption {
	return func(c *writeConfig) { c.sortGenes = true }
}

// Write writes the database in GMT format, one line per gene set, ordered
// by name.
func Write(w io.Writer, db *Database, opts ...WriteOption) error {
	cfg := &writeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	bw := bufio.NewWriter(w)
	for _, name := range db.SortedNames() {
		rec, _ := db.Get(name)
		if cfg.sortGenes {
			sort.Strings(rec.Genes)
		}
		parts := make([]string, 0, len(rec.Genes)+2)
		parts = append(parts, rec.Name, rec.Description)
		parts = append(parts, rec.Genes...)
		if _, err := bw.WriteString(strings.Join(parts, "\t") + "\n"); err != nil {
			return fmt.Errorf("write gmt line: %w", err)
		}
	}
	return bw.Flush()
}

// Serialize returns the GMT text of the database.
func Serialize(db *Database, opts ...WriteOption) string {
	var sb strings.Builder
	_ = Write(&sb, db, opts...)
	return sb.String()
}

// WriteFile writes the database to path, replacing any existing file.
func WriteFile(path string, db *Database, opts ...WriteOption) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gmt file: %w", err)
	}
	if err := Write(f, db, opts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
