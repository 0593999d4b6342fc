package service

import (
	"context"
	"errors"
	"testing"

	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
)

func TestTreeService_MoveNodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("moved node keeps id and subtree", func(t *testing.T) {
		src := env.mustCreateFolder(t, models.RootUniqueID, "Source")
		dst := env.mustCreateFolder(t, models.RootUniqueID, "Dest")
		cfg := env.mustCreateConfig(t, src.UniqueID, "Cfg", "pv:a")
		snap := env.mustSaveSnapshot(t, cfg, "snap")

		contents, err := env.tree.MoveNodes(ctx, []string{src.UniqueID}, dst.UniqueID, "mover")
		if err != nil {
			t.Fatalf("MoveNodes: %v", err)
		}
		if len(contents.Children) != 1 || contents.Children[0].UniqueID != src.UniqueID {
			t.Fatal("target contents do not list the moved node")
		}

		moved, err := env.nodes.GetNode(ctx, src.UniqueID)
		if err != nil {
			t.Fatalf("GetNode after move: %v", err)
		}
		if *moved.ParentID != dst.UniqueID {
			t.Error("parent id not updated")
		}
		// descendants untouched
		if _, err := env.nodes.GetNode(ctx, snap.Node.UniqueID); err != nil {
			t.Errorf("descendant lost in move: %v", err)
		}
		path, err := env.paths.GetFullPath(ctx, cfg.Node.UniqueID)
		if err != nil {
			t.Fatalf("GetFullPath: %v", err)
		}
		if path != "/Dest/Source/Cfg" {
			t.Errorf("path = %q, want /Dest/Source/Cfg", path)
		}
	})

	t.Run("move into own descendant rejected, tree unchanged", func(t *testing.T) {
		outer := env.mustCreateFolder(t, models.RootUniqueID, "Outer")
		inner := env.mustCreateFolder(t, outer.UniqueID, "Inner")

		_, err := env.tree.MoveNodes(ctx, []string{outer.UniqueID}, inner.UniqueID, "mover")
		if !errors.Is(err, domain.ErrCycle) {
			t.Fatalf("want cycle error, got %v", err)
		}

		after, err := env.nodes.GetNode(ctx, outer.UniqueID)
		if err != nil {
			t.Fatalf("GetNode: %v", err)
		}
		if *after.ParentID != models.RootUniqueID {
			t.Error("rejected move changed the tree")
		}
	})

	t.Run("move onto itself rejected", func(t *testing.T) {
		folder := env.mustCreateFolder(t, models.RootUniqueID, "Self")
		if _, err := env.tree.MoveNodes(ctx, []string{folder.UniqueID}, folder.UniqueID, "mover"); !errors.Is(err, domain.ErrCycle) {
			t.Errorf("want cycle error, got %v", err)
		}
	})

	t.Run("name collision at target rejected", func(t *testing.T) {
		a := env.mustCreateFolder(t, models.RootUniqueID, "A")
		b := env.mustCreateFolder(t, models.RootUniqueID, "B")
		env.mustCreateFolder(t, a.UniqueID, "Same")
		moving := env.mustCreateFolder(t, b.UniqueID, "Same")

		if _, err := env.tree.MoveNodes(ctx, []string{moving.UniqueID}, a.UniqueID, "mover"); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("want conflict, got %v", err)
		}
	})

	t.Run("nodes from different parents rejected", func(t *testing.T) {
		p1 := env.mustCreateFolder(t, models.RootUniqueID, "P1")
		p2 := env.mustCreateFolder(t, models.RootUniqueID, "P2")
		c1 := env.mustCreateFolder(t, p1.UniqueID, "C1")
		c2 := env.mustCreateFolder(t, p2.UniqueID, "C2")
		dst := env.mustCreateFolder(t, models.RootUniqueID, "DstMixed")

		if _, err := env.tree.MoveNodes(ctx, []string{c1.UniqueID, c2.UniqueID}, dst.UniqueID, "mover"); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("snapshot move rejected", func(t *testing.T) {
		cfg := env.mustCreateConfig(t, models.RootUniqueID, "MoveSnapCfg", "pv:a")
		snap := env.mustSaveSnapshot(t, cfg, "pinned")
		dst := env.mustCreateFolder(t, models.RootUniqueID, "SnapDst")

		if _, err := env.tree.MoveNodes(ctx, []string{snap.Node.UniqueID}, dst.UniqueID, "mover"); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("target must be a folder", func(t *testing.T) {
		cfg := env.mustCreateConfig(t, models.RootUniqueID, "TargetCfg", "pv:a")
		folder := env.mustCreateFolder(t, models.RootUniqueID, "Movable")

		if _, err := env.tree.MoveNodes(ctx, []string{folder.UniqueID}, cfg.Node.UniqueID, "mover"); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("root cannot be moved", func(t *testing.T) {
		dst := env.mustCreateFolder(t, models.RootUniqueID, "RootDst")
		if _, err := env.tree.MoveNodes(ctx, []string{models.RootUniqueID}, dst.UniqueID, "mover"); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})
}

func TestTreeService_CopyNodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("deep copy gets fresh ids and leaves source untouched", func(t *testing.T) {
		src := env.mustCreateFolder(t, models.RootUniqueID, "CopySrc")
		dst := env.mustCreateFolder(t, models.RootUniqueID, "CopyDst")
		cfg := env.mustCreateConfig(t, src.UniqueID, "Cfg", "pv:a", "pv:b")
		snap := env.mustSaveSnapshot(t, cfg, "snap")

		contents, err := env.tree.CopyNodes(ctx, []string{src.UniqueID}, dst.UniqueID, "copier")
		if err != nil {
			t.Fatalf("CopyNodes: %v", err)
		}
		if len(contents.Children) != 1 {
			t.Fatalf("target children = %d, want 1", len(contents.Children))
		}
		copied := contents.Children[0]
		if copied.UniqueID == src.UniqueID {
			t.Error("copy reused the source id")
		}
		if copied.Name != "CopySrc" {
			t.Errorf("copy name = %q, want CopySrc", copied.Name)
		}
		if copied.UserName != "copier" {
			t.Errorf("copy user = %q, want copier", copied.UserName)
		}

		// source side untouched
		srcAfter, err := env.nodes.GetNode(ctx, src.UniqueID)
		if err != nil {
			t.Fatalf("source after copy: %v", err)
		}
		if *srcAfter.ParentID != models.RootUniqueID {
			t.Error("source parent changed")
		}

		// copied configuration carries fresh pv ids, copied snapshot items
		// reference them
		copiedKids, err := env.nodes.GetChildNodes(ctx, copied.UniqueID)
		if err != nil {
			t.Fatalf("copied children: %v", err)
		}
		if len(copiedKids) != 1 || copiedKids[0].NodeType != models.NodeTypeConfiguration {
			t.Fatal("copied folder does not hold the configuration")
		}
		copiedCfg := copiedKids[0]
		if copiedCfg.UniqueID == cfg.Node.UniqueID {
			t.Error("configuration copy reused the source id")
		}

		srcPvs, err := env.configs.GetConfigPvs(ctx, cfg.Node.UniqueID)
		if err != nil {
			t.Fatalf("source pvs: %v", err)
		}
		copiedPvs, err := env.configs.GetConfigPvs(ctx, copiedCfg.UniqueID)
		if err != nil {
			t.Fatalf("copied pvs: %v", err)
		}
		if len(copiedPvs) != len(srcPvs) {
			t.Fatalf("copied pv count = %d, want %d", len(copiedPvs), len(srcPvs))
		}
		freshPvIDs := make(map[string]struct{}, len(copiedPvs))
		for i := range copiedPvs {
			if copiedPvs[i].UniqueID == srcPvs[i].UniqueID {
				t.Error("copied pv reused source pv id")
			}
			if copiedPvs[i].PvName != srcPvs[i].PvName {
				t.Errorf("pv order changed: %q vs %q", copiedPvs[i].PvName, srcPvs[i].PvName)
			}
			freshPvIDs[copiedPvs[i].UniqueID] = struct{}{}
		}

		snapKids, err := env.nodes.GetChildNodes(ctx, copiedCfg.UniqueID)
		if err != nil {
			t.Fatalf("copied config children: %v", err)
		}
		if len(snapKids) != 1 {
			t.Fatalf("copied snapshot count = %d, want 1", len(snapKids))
		}
		items, err := env.snapshots.GetSnapshotItems(ctx, snapKids[0].UniqueID)
		if err != nil {
			t.Fatalf("copied snapshot items: %v", err)
		}
		if len(items) != len(snap.Items) {
			t.Fatalf("copied item count = %d, want %d", len(items), len(snap.Items))
		}
		for _, item := range items {
			if _, ok := freshPvIDs[item.ConfigPvID]; !ok {
				t.Errorf("copied item references pv %s outside the copied configuration", item.ConfigPvID)
			}
		}
	})

	t.Run("copy into same parent rejected", func(t *testing.T) {
		parent := env.mustCreateFolder(t, models.RootUniqueID, "SameParent")
		child := env.mustCreateFolder(t, parent.UniqueID, "Child")

		if _, err := env.tree.CopyNodes(ctx, []string{child.UniqueID}, parent.UniqueID, "copier"); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("want conflict, got %v", err)
		}
	})

	t.Run("copy collision at target rejected and nothing persisted", func(t *testing.T) {
		a := env.mustCreateFolder(t, models.RootUniqueID, "CA")
		b := env.mustCreateFolder(t, models.RootUniqueID, "CB")
		env.mustCreateFolder(t, a.UniqueID, "Twin")
		source := env.mustCreateFolder(t, b.UniqueID, "Twin")

		if _, err := env.tree.CopyNodes(ctx, []string{source.UniqueID}, a.UniqueID, "copier"); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("want conflict, got %v", err)
		}
		kids, err := env.nodes.GetChildNodes(ctx, a.UniqueID)
		if err != nil {
			t.Fatalf("GetChildNodes: %v", err)
		}
		if len(kids) != 1 {
			t.Errorf("rejected copy left %d children, want 1", len(kids))
		}
	})

	t.Run("copied snapshot keeps its tags", func(t *testing.T) {
		src := env.mustCreateFolder(t, models.RootUniqueID, "TagSrc")
		dst := env.mustCreateFolder(t, models.RootUniqueID, "TagDst")
		cfg := env.mustCreateConfig(t, src.UniqueID, "Cfg", "pv:a")
		snap := env.mustSaveSnapshot(t, cfg, "tagged")
		mustAddTag(t, env, snap.Node.UniqueID, "release")

		contents, err := env.tree.CopyNodes(ctx, []string{src.UniqueID}, dst.UniqueID, "copier")
		if err != nil {
			t.Fatalf("CopyNodes: %v", err)
		}
		copiedCfgs, err := env.nodes.GetChildNodes(ctx, contents.Children[0].UniqueID)
		if err != nil {
			t.Fatalf("copied children: %v", err)
		}
		copiedSnaps, err := env.nodes.GetChildNodes(ctx, copiedCfgs[0].UniqueID)
		if err != nil {
			t.Fatalf("copied config children: %v", err)
		}
		tags, err := env.tags.GetTags(ctx, copiedSnaps[0].UniqueID)
		if err != nil {
			t.Fatalf("copied tags: %v", err)
		}
		if len(tags) != 1 || tags[0].Name != "release" {
			t.Errorf("copied tags = %v, want one tag named release", tags)
		}
	})
}
