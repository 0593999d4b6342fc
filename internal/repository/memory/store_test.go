package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
)

func TestTransactionManager_ExecTx(t *testing.T) {
	t.Run("commit applies all staged changes", func(t *testing.T) {
		store := NewStore()
		repo := NewNodeRepository(store)
		tm := NewTransactionManager(store)

		var aID, bID string
		err := tm.ExecTx(context.Background(), func(ctx context.Context) error {
			a, err := repo.CreateNode(ctx, models.RootUniqueID, &models.Node{
				Name: "a", NodeType: models.NodeTypeFolder,
			})
			if err != nil {
				return err
			}
			aID = a.UniqueID
			b, err := repo.CreateNode(ctx, a.UniqueID, &models.Node{
				Name: "b", NodeType: models.NodeTypeFolder,
			})
			if err != nil {
				return err
			}
			bID = b.UniqueID
			return nil
		})
		if err != nil {
			t.Fatalf("ExecTx: %v", err)
		}

		if _, err := repo.GetNode(context.Background(), aID); err != nil {
			t.Errorf("a not visible after commit: %v", err)
		}
		if _, err := repo.GetNode(context.Background(), bID); err != nil {
			t.Errorf("b not visible after commit: %v", err)
		}
	})

	t.Run("error rolls back everything", func(t *testing.T) {
		store := NewStore()
		repo := NewNodeRepository(store)
		tm := NewTransactionManager(store)

		var createdID string
		sentinel := errors.New("boom")
		err := tm.ExecTx(context.Background(), func(ctx context.Context) error {
			node, err := repo.CreateNode(ctx, models.RootUniqueID, &models.Node{
				Name: "doomed", NodeType: models.NodeTypeFolder,
			})
			if err != nil {
				return err
			}
			createdID = node.UniqueID
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("ExecTx err = %v, want sentinel", err)
		}
		if _, err := repo.GetNode(context.Background(), createdID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("rolled-back node still visible: %v", err)
		}
	})

	t.Run("transaction sees its own staged writes", func(t *testing.T) {
		store := NewStore()
		repo := NewNodeRepository(store)
		tm := NewTransactionManager(store)

		err := tm.ExecTx(context.Background(), func(ctx context.Context) error {
			node, err := repo.CreateNode(ctx, models.RootUniqueID, &models.Node{
				Name: "staged", NodeType: models.NodeTypeFolder,
			})
			if err != nil {
				return err
			}
			got, err := repo.GetNode(ctx, node.UniqueID)
			if err != nil {
				return fmt.Errorf("staged node not readable in same tx: %w", err)
			}
			if got.Name != "staged" {
				return fmt.Errorf("staged read got %q", got.Name)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})
}

func TestStore_OptimisticConcurrency(t *testing.T) {
	t.Run("overlapping writers conflict", func(t *testing.T) {
		store := NewStore()
		repo := NewNodeRepository(store)
		tm := NewTransactionManager(store)

		node, err := repo.CreateNode(context.Background(), models.RootUniqueID, &models.Node{
			Name: "contested", NodeType: models.NodeTypeFolder,
		})
		if err != nil {
			t.Fatalf("CreateNode: %v", err)
		}

		// a second writer commits while the first transaction is open
		err = tm.ExecTx(context.Background(), func(ctx context.Context) error {
			if _, err := repo.GetNode(ctx, node.UniqueID); err != nil {
				return err
			}
			if _, err := repo.UpdateNode(context.Background(), &models.Node{
				UniqueID: node.UniqueID,
				Name:     "taken by writer two",
			}, false); err != nil {
				return err
			}
			_, err := repo.UpdateNode(ctx, &models.Node{
				UniqueID: node.UniqueID,
				Name:     "taken by writer one",
			}, false)
			return err
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("want conflict, got %v", err)
		}

		got, err := repo.GetNode(context.Background(), node.UniqueID)
		if err != nil {
			t.Fatalf("GetNode: %v", err)
		}
		if got.Name != "taken by writer two" {
			t.Errorf("name = %q, the losing transaction leaked state", got.Name)
		}
	})

	t.Run("disjoint writers both commit", func(t *testing.T) {
		store := NewStore()
		repo := NewNodeRepository(store)
		tm := NewTransactionManager(store)

		left, err := repo.CreateNode(context.Background(), models.RootUniqueID, &models.Node{
			Name: "left", NodeType: models.NodeTypeFolder,
		})
		if err != nil {
			t.Fatal(err)
		}
		right, err := repo.CreateNode(context.Background(), models.RootUniqueID, &models.Node{
			Name: "right", NodeType: models.NodeTypeFolder,
		})
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, id := range []string{left.UniqueID, right.UniqueID} {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				errs[i] = tm.ExecTx(context.Background(), func(ctx context.Context) error {
					_, err := repo.UpdateNode(ctx, &models.Node{
						UniqueID: id,
						Name:     fmt.Sprintf("renamed-%d", i),
					}, false)
					return err
				})
			}(i, id)
		}
		wg.Wait()
		for i, err := range errs {
			if err != nil {
				t.Errorf("writer %d: %v", i, err)
			}
		}
	})

	t.Run("crossed moves cannot detach a cycle", func(t *testing.T) {
		store := NewStore()
		repo := NewNodeRepository(store)
		tm := NewTransactionManager(store)

		// root -> a -> a1, root -> b -> b1
		mk := func(parent, name string) *models.Node {
			t.Helper()
			node, err := repo.CreateNode(context.Background(), parent, &models.Node{
				Name: name, NodeType: models.NodeTypeFolder,
			})
			if err != nil {
				t.Fatalf("CreateNode %s: %v", name, err)
			}
			return node
		}
		a := mk(models.RootUniqueID, "a")
		a1 := mk(a.UniqueID, "a1")
		b := mk(models.RootUniqueID, "b")
		b1 := mk(b.UniqueID, "b1")

		// one transaction moves a under b1 while a second moves b under a1;
		// if both committed, {a, a1, b, b1} would form a cycle detached
		// from the root
		err := tm.ExecTx(context.Background(), func(ctx context.Context) error {
			if err := repo.Reparent(ctx, a.UniqueID, b1.UniqueID); err != nil {
				return err
			}
			return repo.Reparent(context.Background(), b.UniqueID, a1.UniqueID)
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("want conflict, got %v", err)
		}

		// the second move won, the first rolled back
		gotA, err := repo.GetParentNode(context.Background(), a.UniqueID)
		if err != nil {
			t.Fatal(err)
		}
		if gotA.UniqueID != models.RootUniqueID {
			t.Errorf("a reparented to %s, losing move leaked", gotA.UniqueID)
		}

		// every node still reaches the root
		for _, id := range []string{a.UniqueID, a1.UniqueID, b.UniqueID, b1.UniqueID} {
			cur := id
			for i := 0; ; i++ {
				if cur == models.RootUniqueID {
					break
				}
				if i > 10 {
					t.Fatalf("node %s does not reach the root", id)
				}
				parent, err := repo.GetParentNode(context.Background(), cur)
				if err != nil {
					t.Fatalf("GetParentNode %s: %v", cur, err)
				}
				cur = parent.UniqueID
			}
		}
	})

	t.Run("contended sibling create serializes", func(t *testing.T) {
		store := NewStore()
		repo := NewNodeRepository(store)
		tm := NewTransactionManager(store)

		// many goroutines race to create the same name; exactly one wins
		const n = 16
		var wg sync.WaitGroup
		results := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = tm.ExecTx(context.Background(), func(ctx context.Context) error {
					_, err := repo.CreateNode(ctx, models.RootUniqueID, &models.Node{
						Name: "singleton", NodeType: models.NodeTypeFolder,
					})
					return err
				})
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Errorf("winners = %d, want exactly 1", wins)
		}

		children, err := repo.GetChildNodes(context.Background(), models.RootUniqueID)
		if err != nil {
			t.Fatal(err)
		}
		if len(children) != 1 {
			t.Errorf("children = %d, want 1", len(children))
		}
	})
}
