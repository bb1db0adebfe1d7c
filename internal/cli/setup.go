package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lazypower/stratum/internal/analyzer"
	"github.com/lazypower/stratum/internal/archive"
	"github.com/lazypower/stratum/internal/config"
	"github.com/lazypower/stratum/internal/engine"
	"github.com/lazypower/stratum/internal/store"
	"go.uber.org/zap"
)

// runtime bundles everything a command needs to operate on the local store.
type runtime struct {
	cfg      config.Config
	db       *store.DB
	engine   *engine.Engine
	archiver *archive.DirArchiver
	log      *zap.SugaredLogger
}

func newLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// openRuntime loads config, opens the store, probes the analyzer, and
// reloads the engine. Callers must Close().
func openRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log := newLogger()

	// The analyzer is an external collaborator; run degraded without it.
	var an analyzer.Client
	if analyzer.Probe(cfg.Analyzer.URL) {
		an = analyzer.NewHTTPAnalyzer(cfg.Analyzer.URL)
		fmt.Fprintf(os.Stderr, "  analyzer: %s\n", cfg.Analyzer.URL)
	} else {
		fmt.Fprintf(os.Stderr, "  analyzer: unavailable (degraded, empty tags)\n")
	}

	archiveDir := cfg.Archive.Dir
	if archiveDir == "" {
		archiveDir = filepath.Join(filepath.Dir(dbPath), "archive")
	}
	archiver, err := archive.NewDirArchiver(archiveDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	queue := archive.NewQueue(cfg.Archive.MaxAttempts, log)
	eng := engine.New(db, an, queue, log, engine.Options{
		HotCeiling: cfg.Optimizer.HotCeiling,
	})
	if err := eng.Reload(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reload engine: %w", err)
	}

	return &runtime{cfg: cfg, db: db, engine: eng, archiver: archiver, log: log}, nil
}

func (rt *runtime) Close() {
	rt.db.Close()
	rt.log.Sync()
}
