package service

import (
	"context"
	"errors"
	"testing"

	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/services"
)

func TestConfigurationService_CreateConfiguration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("create assigns pv ids and keeps order", func(t *testing.T) {
		cfg := env.mustCreateConfig(t, models.RootUniqueID, "Magnets", "MAG:Q1", "MAG:Q2", "MAG:Q3")

		pvs, err := env.configs.GetConfigPvs(ctx, cfg.Node.UniqueID)
		if err != nil {
			t.Fatalf("GetConfigPvs: %v", err)
		}
		if len(pvs) != 3 {
			t.Fatalf("pv count = %d, want 3", len(pvs))
		}
		for i, want := range []string{"MAG:Q1", "MAG:Q2", "MAG:Q3"} {
			if pvs[i].PvName != want {
				t.Errorf("pv[%d] = %q, want %q", i, pvs[i].PvName, want)
			}
			if pvs[i].UniqueID == "" {
				t.Errorf("pv[%d] has no id", i)
			}
		}
	})

	t.Run("duplicate pv names rejected", func(t *testing.T) {
		_, err := env.configs.CreateConfiguration(ctx, &services.CreateConfigurationRequest{
			ParentID: models.RootUniqueID,
			Name:     "Dup PVs",
			PvList:   []models.ConfigPv{{PvName: "PV:A"}, {PvName: "PV:A"}},
			UserName: "tester",
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("empty pv name rejected", func(t *testing.T) {
		_, err := env.configs.CreateConfiguration(ctx, &services.CreateConfigurationRequest{
			ParentID: models.RootUniqueID,
			Name:     "Blank PV",
			PvList:   []models.ConfigPv{{PvName: "  "}},
			UserName: "tester",
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})
}

func TestConfigurationService_UpdateConfiguration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("retained pvs keep identity, removed ones drop", func(t *testing.T) {
		cfg := env.mustCreateConfig(t, models.RootUniqueID, "Evolving", "PV:A", "PV:B")
		keep := cfg.PvList[0]

		updated, err := env.configs.UpdateConfiguration(ctx, &services.UpdateConfigurationRequest{
			ConfigID: cfg.Node.UniqueID,
			PvList: []models.ConfigPv{
				{UniqueID: keep.UniqueID, PvName: keep.PvName},
				{PvName: "PV:C"},
			},
			UserName: "tester",
		})
		if err != nil {
			t.Fatalf("UpdateConfiguration: %v", err)
		}
		if len(updated.PvList) != 2 {
			t.Fatalf("pv count = %d, want 2", len(updated.PvList))
		}
		if updated.PvList[0].UniqueID != keep.UniqueID {
			t.Error("retained pv lost its identity")
		}
		if updated.PvList[1].UniqueID == "" || updated.PvList[1].UniqueID == cfg.PvList[1].UniqueID {
			t.Error("new pv did not get a fresh identity")
		}
	})

	t.Run("foreign pv id rejected", func(t *testing.T) {
		cfg := env.mustCreateConfig(t, models.RootUniqueID, "Strict Update", "PV:A")
		_, err := env.configs.UpdateConfiguration(ctx, &services.UpdateConfigurationRequest{
			ConfigID: cfg.Node.UniqueID,
			PvList:   []models.ConfigPv{{UniqueID: "stolen-id", PvName: "PV:X"}},
			UserName: "tester",
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("update on folder rejected", func(t *testing.T) {
		folder := env.mustCreateFolder(t, models.RootUniqueID, "NotAConfig")
		_, err := env.configs.UpdateConfiguration(ctx, &services.UpdateConfigurationRequest{
			ConfigID: folder.UniqueID,
			PvList:   []models.ConfigPv{{PvName: "PV:A"}},
			UserName: "tester",
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})
}

func TestConfigurationService_RenamePv(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("rename preserves identity and snapshot history", func(t *testing.T) {
		cfg := env.mustCreateConfig(t, models.RootUniqueID, "History", "OLD:NAME", "OTHER:PV")
		snap := env.mustSaveSnapshot(t, cfg, "before rename")
		oldID := cfg.PvList[0].UniqueID

		renamed, err := env.configs.RenamePv(ctx, &services.RenamePvRequest{
			ConfigID:  cfg.Node.UniqueID,
			OldPvName: "OLD:NAME",
			NewPvName: "NEW:NAME",
			UserName:  "tester",
		})
		if err != nil {
			t.Fatalf("RenamePv: %v", err)
		}
		if renamed.UniqueID != oldID {
			t.Error("rename changed the pv identity")
		}
		if renamed.PvName != "NEW:NAME" {
			t.Errorf("pv name = %q, want NEW:NAME", renamed.PvName)
		}

		// historical items still reference the pv by id
		items, err := env.snapshots.GetSnapshotItems(ctx, snap.Node.UniqueID)
		if err != nil {
			t.Fatalf("GetSnapshotItems: %v", err)
		}
		found := false
		for _, item := range items {
			if item.ConfigPvID == oldID {
				found = true
			}
		}
		if !found {
			t.Error("snapshot item no longer references the renamed pv")
		}
	})

	t.Run("rename to existing name conflicts", func(t *testing.T) {
		cfg := env.mustCreateConfig(t, models.RootUniqueID, "Clash", "PV:A", "PV:B")
		_, err := env.configs.RenamePv(ctx, &services.RenamePvRequest{
			ConfigID:  cfg.Node.UniqueID,
			OldPvName: "PV:A",
			NewPvName: "PV:B",
			UserName:  "tester",
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("want conflict, got %v", err)
		}
	})

	t.Run("unknown pv not found", func(t *testing.T) {
		cfg := env.mustCreateConfig(t, models.RootUniqueID, "Missing", "PV:A")
		_, err := env.configs.RenamePv(ctx, &services.RenamePvRequest{
			ConfigID:  cfg.Node.UniqueID,
			OldPvName: "PV:Z",
			NewPvName: "PV:Y",
			UserName:  "tester",
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("want not found, got %v", err)
		}
	})
}
