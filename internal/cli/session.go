package cli

import (
	"context"
	"fmt"

	"github.com/asaidimu/go-reportql/config"
	"github.com/asaidimu/go-reportql/core/catalog"
	"github.com/asaidimu/go-reportql/core/query"
	"github.com/asaidimu/go-reportql/internal/selection"
	"github.com/asaidimu/go-reportql/sqlite"
	"go.uber.org/zap"
)

// session is the state shared by commands: configuration, logger and a
// catalog discovered from the configured sources.
type session struct {
	cfg          *config.Config
	logger       *zap.Logger
	introspector *sqlite.Introspector
	catalog      *catalog.Catalog
}

func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	sources := make([]sqlite.Source, len(cfg.DataSources))
	for i, ds := range cfg.Sources() {
		sources[i] = sqlite.Source{ID: ds.ID, Name: ds.Name, Path: cfg.DataSources[i].Path}
	}
	in := sqlite.NewIntrospector(sources, logger)

	cat := catalog.New(logger)
	if err := catalog.NewLoader(in, cat, logger).LoadAll(ctx); err != nil {
		in.Close()
		return nil, fmt.Errorf("failed to discover data sources: %w", err)
	}

	return &session{cfg: cfg, logger: logger, introspector: in, catalog: cat}, nil
}

// model builds a query model from the selection file at path.
func (s *session) model(path string) (*query.Model, error) {
	if path == "" {
		return nil, fmt.Errorf("a selection file is required (--selection)")
	}
	doc, err := selection.Load(path)
	if err != nil {
		return nil, err
	}
	m, err := query.NewModel(s.catalog, s.cfg.ModelOptions(s.logger))
	if err != nil {
		return nil, err
	}
	if err := doc.Apply(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *session) Close() {
	s.introspector.Close()
	_ = s.logger.Sync()
}
