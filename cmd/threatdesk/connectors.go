package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/threatdesk/threatdesk/internal/catalog"
	"github.com/threatdesk/threatdesk/internal/config"
	"github.com/threatdesk/threatdesk/internal/connectors/registry"
	"github.com/threatdesk/threatdesk/internal/connectors/scanapi"
	"github.com/threatdesk/threatdesk/internal/connectors/spreadsheet"
	"github.com/threatdesk/threatdesk/internal/remediation"
	"github.com/threatdesk/threatdesk/internal/store"
	"github.com/threatdesk/threatdesk/internal/sync"
)

// runtime holds the components shared by the commands that read findings.
type runtime struct {
	pool      *pgxpool.Pool
	artifacts remediation.Store
	imports   spreadsheet.ImportStore
	catalog   *catalog.Catalog
	client    *scanapi.Client
	registry  *registry.Registry
	refresher *sync.Refresher
	engine    *remediation.Engine
}

func buildConnectorRegistry(client *scanapi.Client, imports spreadsheet.ImportStore) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	if err := reg.Register(client.ThreatFeed()); err != nil {
		return nil, err
	}
	if err := reg.Register(client.VulnerabilityFeed()); err != nil {
		return nil, err
	}
	if err := reg.Register(client.InfrastructureFeed()); err != nil {
		return nil, err
	}
	if err := reg.Register(spreadsheet.NewSource(imports)); err != nil {
		return nil, err
	}
	return reg, nil
}

// newRuntime wires the stores, sources and engines. Without DATABASE_URL the
// caches are kept in memory.
func newRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{}
	if cfg.DatabaseURL != "" {
		pool, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.pool = pool
		rt.artifacts = store.NewArtifacts(pool)
		rt.imports = store.NewImports(pool)
	} else {
		slog.Warn("DATABASE_URL is not set; artifact and import caches will not survive a restart")
		mem := store.NewMemory()
		rt.artifacts = mem
		rt.imports = mem
	}

	var err error
	if rt.catalog, err = catalog.Load(cfg.CatalogPath); err != nil {
		rt.Close()
		return nil, err
	}
	if rt.client, err = scanapi.New(cfg.ScanAPIBaseURL, cfg.ScanAPIToken, cfg.ScanAPITimeout); err != nil {
		rt.Close()
		return nil, err
	}
	if rt.registry, err = buildConnectorRegistry(rt.client, rt.imports); err != nil {
		rt.Close()
		return nil, err
	}

	rt.refresher = sync.NewRefresher(rt.registry)
	rt.refresher.SetReporter(&sync.LogReporter{})
	rt.engine = remediation.NewEngine(rt.artifacts, rt.client, rt.catalog)
	return rt, nil
}

func (rt *runtime) Close() {
	if rt != nil && rt.pool != nil {
		rt.pool.Close()
	}
}
