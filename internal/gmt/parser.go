package gmt

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ParseOption configures Parse.
type ParseOption func(*parser)

// WithSeparator sets the column separator (default tab).
func WithSeparator(sep string) ParseOption {
	return func(p *parser) { p.sep = sep }
}

// WithTrimPrefix strips a prefix (e.g. "HALLMARK_") from gene-set names.
func WithTrimPrefix(prefix string) ParseOption {
	return func(p *parser) { p.trimPrefix = prefix }
}

// WithLogger sets the logger used for skipped-line warnings.
func WithLogger(l *zap.Logger) ParseOption {
	return func(p *parser) { p.logger = l }
}

// WithStrict makes malformed lines fail the parse instead of being skipped.
func WithStrict() ParseOption {
	return func(p *parser) { p.strict = true }
}

type parser struct {
	sep        string
	trimPrefix string
	strict     bool
	logger     *zap.Logger
	lineNumber int
}

// ParseError reports a malformed GMT line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gmt parse error at line %d: %s", e.Line, e.Message)
}

// Parse reads a gene-set database. Each line is
// name<sep>description<sep>gene...; lines without genes yield empty sets and
// a repeated name replaces the earlier set. Malformed lines are logged and
// skipped unless WithStrict is given.
func Parse(r io.Reader, opts ...ParseOption) (*Database, error) {
	p := &parser{sep: "\t", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}

	db := NewDatabase()
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read gmt line: %w", err)
		}
		if line != "" {
			p.lineNumber++
			if perr := p.parseLine(db, strings.TrimRight(line, "\r\n")); perr != nil {
				if p.strict {
					return nil, perr
				}
				p.logger.Warn("skipping malformed gmt line",
					zap.Int("line", perr.Line),
					zap.String("reason", perr.Message))
			}
		}
		if err == io.EOF {
			break
		}
	}
	return db, nil
}

func (p *parser) parseLine(db *Database, line string) *ParseError {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	fields := strings.Split(line, p.sep)
	name := strings.TrimSpace(fields[0])
	if p.trimPrefix != "" {
		name = strings.TrimPrefix(name, p.trimPrefix)
	}
	if name == "" {
		return &ParseError{Line: p.lineNumber, Message: "missing gene set name"}
	}

	rec := Record{Name: name}
	if len(fields) > 1 {
		rec.Description = strings.TrimSpace(fields[1])
	}
	if len(fields) > 2 {
		rec.Genes = make([]string, 0, len(fields)-2)
		for _, g := range fields[2:] {
			if g = strings.TrimSpace(g); g != "" {
				rec.Genes = append(rec.Genes, g)
			}
		}
	}
	db.Add(rec)
	return nil
}

// ReadFile parses a GMT file. Gzipped files are detected by their magic bytes.
func ReadFile(path string, opts ...ParseOption) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gmt file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		return Parse(gz, opts...)
	}

	return Parse(br, opts...)
}
