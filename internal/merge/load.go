package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-geneset/internal/progress"
)

// Loader reads extracted and verified gene documents from disk.
// Unreadable or malformed files are logged and skipped.
type Loader struct {
	filter progress.Store
	logger *zap.Logger
}

// NewLoader creates a loader. A non-nil filter restricts extracted
// phenotypes to the keys it marks done.
func NewLoader(filter progress.Store) *Loader {
	return &Loader{filter: filter, logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped files.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// LoadExtractedDir reads <dir>/<phenotype>.json documents. A missing
// directory yields no phenotypes.
func (l *Loader) LoadExtractedDir(ctx context.Context, dir string) (map[string][]Entry, error) {
	out := make(map[string][]Entry)
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		l.logger.Warn("extracted directory not found", zap.String("dir", dir))
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read extracted directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		pheno := strings.TrimSuffix(f.Name(), ".json")
		if l.filter != nil {
			done, err := l.filter.IsDone(ctx, pheno)
			if err != nil {
				return nil, fmt.Errorf("check progress of %s: %w", pheno, err)
			}
			if !done {
				continue
			}
		}

		path := filepath.Join(dir, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("skipping unreadable extracted file", zap.String("path", path), zap.Error(err))
			continue
		}
		entries, err := DecodeExtracted(data)
		if err != nil {
			l.logger.Warn("skipping malformed extracted file", zap.String("path", path), zap.Error(err))
			continue
		}
		out[pheno] = entries
	}
	l.logger.Info("loaded extracted genes", zap.String("dir", dir), zap.Int("phenotypes", len(out)))
	return out, nil
}

// LoadVerifiedDir reads <dir>/<phenotype>/<gene>.json documents. Phenotypes
// without any validated gene are left out.
func (l *Loader) LoadVerifiedDir(ctx context.Context, dir string) (map[string][]Entry, error) {
	out := make(map[string][]Entry)
	phenos, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		l.logger.Warn("verified directory not found", zap.String("dir", dir))
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read verified directory: %w", err)
	}

	for _, p := range phenos {
		if !p.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdir := filepath.Join(dir, p.Name())
		files, err := os.ReadDir(pdir)
		if err != nil {
			l.logger.Warn("skipping unreadable phenotype directory", zap.String("dir", pdir), zap.Error(err))
			continue
		}

		var entries []Entry
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			path := filepath.Join(pdir, f.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				l.logger.Warn("skipping unreadable verified file", zap.String("path", path), zap.Error(err))
				continue
			}
			e, err := DecodeVerified(data)
			if err != nil {
				l.logger.Warn("skipping malformed verified file", zap.String("path", path), zap.Error(err))
				continue
			}
			entries = append(entries, e...)
		}
		if len(entries) > 0 {
			out[p.Name()] = entries
		}
	}
	l.logger.Info("loaded verified genes", zap.String("dir", dir), zap.Int("phenotypes", len(out)))
	return out, nil
}
