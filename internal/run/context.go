// Package run bundles the per-invocation collaborators (configuration,
// identifier mapper, progress store, results store and logger) that the
// CLI passes explicitly to the core packages.
package run

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/inodb/vibe-geneset/internal/duckdb"
	"github.com/inodb/vibe-geneset/internal/idmap"
	"github.com/inodb/vibe-geneset/internal/merge"
	"github.com/inodb/vibe-geneset/internal/progress"
)

// Config holds the settings of one invocation.
type Config struct {
	MyGene       idmap.MyGeneConfig
	Offline      bool   // never call MyGene.info
	MappingFile  string // symbol<TAB>id dictionary used when offline
	Samples      int
	Seed         uint64
	Workers      int
	MergeMode    merge.Mode
	MinSources   int
	CachePath    string // DuckDB results and mapping cache; empty = in memory
	ProgressPath string // SQLite progress store; empty = in memory
}

// Context carries the collaborators of one invocation.
type Context struct {
	Config   Config
	Mapper   idmap.Mapper
	Progress progress.Store
	Results  *duckdb.Store
	Logger   *zap.Logger
	RunID    string
}

// Open builds a Context from cfg. The caller must Close it.
func Open(cfg Config, logger *zap.Logger) (*Context, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	results, err := duckdb.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open results store: %w", err)
	}

	var prog progress.Store = progress.NewMemory()
	if cfg.ProgressPath != "" {
		sq, err := progress.OpenSQLite(cfg.ProgressPath)
		if err != nil {
			results.Close()
			return nil, fmt.Errorf("open progress store: %w", err)
		}
		prog = sq
	}

	base, err := baseMapper(cfg, logger)
	if err != nil {
		results.Close()
		prog.Close()
		return nil, err
	}
	cached := idmap.NewCachedMapper(base, results)
	cached.SetLogger(logger)

	return &Context{
		Config:   cfg,
		Mapper:   cached,
		Progress: prog,
		Results:  results,
		Logger:   logger,
	}, nil
}

func baseMapper(cfg Config, logger *zap.Logger) (idmap.Mapper, error) {
	if !cfg.Offline {
		c := idmap.NewMyGeneClient(cfg.MyGene)
		c.SetLogger(logger)
		return c, nil
	}

	dict := map[string]string{}
	if cfg.MappingFile != "" {
		f, err := os.Open(cfg.MappingFile)
		if err != nil {
			return nil, fmt.Errorf("open mapping file: %w", err)
		}
		defer f.Close()
		if dict, err = idmap.ReadDictionary(f); err != nil {
			return nil, err
		}
	}
	logger.Info("offline identifier mapping", zap.Int("symbols", len(dict)))
	return idmap.NewStaticMapper(dict), nil
}

// StartRun records an invocation of command over the given input files and
// stores its id in RunID.
func (c *Context) StartRun(ctx context.Context, command string, inputs ...string) error {
	fps, err := duckdb.StatFiles(inputs...)
	if err != nil {
		return fmt.Errorf("fingerprint inputs: %w", err)
	}
	id, err := c.Results.StartRun(ctx, command, fps)
	if err != nil {
		return err
	}
	c.RunID = id
	c.Logger.Debug("run started", zap.String("command", command), zap.String("run_id", id))
	return nil
}

// PreviousRun returns the most recent earlier run of command over the same
// unchanged input files, or nil.
func (c *Context) PreviousRun(ctx context.Context, command string, inputs ...string) (*duckdb.Run, error) {
	fps, err := duckdb.StatFiles(inputs...)
	if err != nil {
		return nil, fmt.Errorf("fingerprint inputs: %w", err)
	}
	return c.Results.FindRun(ctx, command, fps)
}

// Close releases the stores.
func (c *Context) Close() error {
	perr := c.Progress.Close()
	rerr := c.Results.Close()
	if perr != nil {
		return perr
	}
	return rerr
}
