package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"saveandrestore/internal/alarm"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
	"saveandrestore/internal/domain/services"
	"saveandrestore/internal/repository/memory"
)

// testEnv wires every service against a fresh in-memory store.
type testEnv struct {
	store     *memory.Store
	nodeRepo  repositories.NodeRepository
	nodes     services.NodeService
	tree      services.TreeService
	snapshots services.SnapshotService
	configs   services.ConfigurationService
	tags      services.TagManager
	paths     services.PathResolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	nodeRepo := memory.NewNodeRepository(store)
	configRepo := memory.NewConfigurationRepository(store)
	snapshotRepo := memory.NewSnapshotRepository(store)
	tagRepo := memory.NewTagRepository(store)
	txManager := memory.NewTransactionManager(store)

	registry, err := alarm.NewRegistry()
	if err != nil {
		t.Fatalf("load alarm registry: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		store:     store,
		nodeRepo:  nodeRepo,
		nodes:     NewNodeService(nodeRepo, txManager, logger),
		tree:      NewTreeService(nodeRepo, configRepo, snapshotRepo, tagRepo, txManager, logger),
		snapshots: NewSnapshotService(nodeRepo, configRepo, snapshotRepo, txManager, registry, logger),
		configs:   NewConfigurationService(nodeRepo, configRepo, txManager, logger),
		tags:      NewTagManager(nodeRepo, tagRepo, txManager, logger),
		paths:     NewPathResolver(nodeRepo, logger),
	}
}

// mustCreateFolder creates a folder under parentID and fails the test on error.
func (e *testEnv) mustCreateFolder(t *testing.T, parentID, name string) *models.Node {
	t.Helper()
	node, err := e.nodes.CreateNode(context.Background(), &services.CreateNodeRequest{
		ParentID: parentID,
		Name:     name,
		NodeType: models.NodeTypeFolder,
		UserName: "tester",
	})
	if err != nil {
		t.Fatalf("create folder %q: %v", name, err)
	}
	return node
}

// mustCreateConfig creates a configuration with the given pv names.
func (e *testEnv) mustCreateConfig(t *testing.T, parentID, name string, pvNames ...string) *models.Configuration {
	t.Helper()
	pvs := make([]models.ConfigPv, len(pvNames))
	for i, pvName := range pvNames {
		pvs[i] = models.ConfigPv{PvName: pvName}
	}
	cfg, err := e.configs.CreateConfiguration(context.Background(), &services.CreateConfigurationRequest{
		ParentID: parentID,
		Name:     name,
		PvList:   pvs,
		UserName: "tester",
	})
	if err != nil {
		t.Fatalf("create configuration %q: %v", name, err)
	}
	return cfg
}

// mustAddTag attaches a tag to a committed snapshot.
func mustAddTag(t *testing.T, env *testEnv, snapshotID, name string) {
	t.Helper()
	if _, err := env.tags.AddTagToSnapshot(context.Background(), &services.AddTagRequest{
		SnapshotID: snapshotID,
		Name:       name,
		UserName:   "tester",
	}); err != nil {
		t.Fatalf("add tag %q: %v", name, err)
	}
}

// mustSaveSnapshot commits a snapshot capturing one item per config pv.
func (e *testEnv) mustSaveSnapshot(t *testing.T, cfg *models.Configuration, name string) *models.Snapshot {
	t.Helper()
	items := make([]models.SnapshotItem, len(cfg.PvList))
	for i, pv := range cfg.PvList {
		items[i] = models.SnapshotItem{
			ConfigPvID: pv.UniqueID,
			Value:      "1.0",
			Severity:   "NONE",
			Status:     "NO_ALARM",
		}
	}
	snap, err := e.snapshots.SaveSnapshot(context.Background(), &services.SaveSnapshotRequest{
		ConfigID: cfg.Node.UniqueID,
		Items:    items,
		Name:     name,
		Comment:  "captured by test",
		UserName: "tester",
	})
	if err != nil {
		t.Fatalf("save snapshot %q: %v", name, err)
	}
	return snap
}
