package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/keydash/keydash/internal/datastore"
)

func newTestKeys(t *testing.T) (*APIKeyService, *datastore.SQLTree) {
	t.Helper()
	tree := newTestTree(t)
	return NewAPIKeyService(tree, testNamespace, time.Second, discardLogger), tree
}

func TestListNoKeys(t *testing.T) {
	keys, _ := newTestKeys(t)

	got, err := keys.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestListDefaultsActivePerRecord(t *testing.T) {
	keys, tree := newTestKeys(t)
	ctx := context.Background()

	tree.Set(ctx, "admin-dashboard/admin/u1/apikeys", map[string]any{
		"k1": map[string]any{"key": "sk_one", "createdAt": "2024-01-01T00:00:00Z"},
		"k2": map[string]any{"key": "sk_two", "createdAt": 1704067200000, "active": false},
	})

	got, err := keys.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(got))
	}
	if got[0].ID != "k1" || !got[0].Active || got[0].Key != "sk_one" {
		t.Errorf("k1 = %+v", got[0])
	}
	if got[1].ID != "k2" || got[1].Active {
		t.Errorf("k2 = %+v", got[1])
	}
	if got[1].CreatedAt != float64(1704067200000) {
		t.Errorf("k2 createdAt = %v", got[1].CreatedAt)
	}
}

func TestListIsScopedToUser(t *testing.T) {
	keys, tree := newTestKeys(t)
	ctx := context.Background()

	tree.Set(ctx, "admin-dashboard/admin/u1/apikeys/k1", map[string]any{"key": "sk_u1"})
	tree.Set(ctx, "admin-dashboard/admin/u2/apikeys/k2", map[string]any{"key": "sk_u2"})

	got, err := keys.List(ctx, "u2")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Key != "sk_u2" {
		t.Errorf("got %+v", got)
	}
}

func TestListSkipsMalformedRecord(t *testing.T) {
	keys, tree := newTestKeys(t)
	ctx := context.Background()

	tree.Set(ctx, "admin-dashboard/admin/u1/apikeys", map[string]any{
		"k1":  map[string]any{"key": "sk_one"},
		"bad": "not-an-object",
	})

	got, err := keys.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != "k1" {
		t.Errorf("got %+v", got)
	}
}

func TestListArrayShapedNode(t *testing.T) {
	keys, tree := newTestKeys(t)
	ctx := context.Background()

	tree.Set(ctx, "admin-dashboard/admin/u1/apikeys", []any{
		map[string]any{"key": "sk_zero"},
		nil,
		map[string]any{"key": "sk_two", "active": false},
	})

	got, err := keys.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %+v", got)
	}
	if got[0].ID != "0" || got[0].Key != "sk_zero" || !got[0].Active {
		t.Errorf("key 0 = %+v", got[0])
	}
	if got[1].ID != "2" || got[1].Key != "sk_two" || got[1].Active {
		t.Errorf("key 2 = %+v", got[1])
	}
}

func TestListReadFailure(t *testing.T) {
	cause := errors.New("permission denied")
	keys := NewAPIKeyService(failingTree{err: cause}, testNamespace, 0, discardLogger)

	if _, err := keys.List(context.Background(), "u1"); !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

// slowTree blocks reads until the context is done.
type slowTree struct{ failingTree }

func (slowTree) Get(ctx context.Context, _ string, _ any) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestListTimesOut(t *testing.T) {
	keys := NewAPIKeyService(slowTree{}, testNamespace, 20*time.Millisecond, discardLogger)

	_, err := keys.List(context.Background(), "u1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestCreateAndDeactivate(t *testing.T) {
	keys, tree := newTestKeys(t)
	ctx := context.Background()
	seedAdmin(t, tree, "u1", "alice", testPassword)

	key, err := keys.Create(ctx, "u1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(key.Key, "sk_") || !key.Active {
		t.Errorf("unexpected key %+v", key)
	}

	if err := keys.SetActive(ctx, "u1", key.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	got, err := keys.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Active {
		t.Errorf("expected one inactive key, got %+v", got)
	}
}

func TestCreateUnknownAdmin(t *testing.T) {
	keys, _ := newTestKeys(t)
	if _, err := keys.Create(context.Background(), "ghost"); !errors.Is(err, ErrUnknownAdmin) {
		t.Errorf("expected ErrUnknownAdmin, got %v", err)
	}
}

func TestSetActiveUnknownKey(t *testing.T) {
	keys, _ := newTestKeys(t)
	err := keys.SetActive(context.Background(), "u1", "missing", false)
	if !errors.Is(err, datastore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
