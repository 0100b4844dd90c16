package vault

import (
	"errors"
	"testing"
	"time"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zroster/internal/identity"
)

func openTestVault(t *testing.T) (*Vault, zfilesystem.ReadWriteFileFS) {
	t.Helper()
	fsys := zfilesystem.NewMemFS()
	v, err := Open(fsys, []byte("master"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(v.Close)
	return v, fsys
}

func testBatch(id string, created time.Time) Batch {
	return Batch{
		ID:        id,
		Date:      time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		CreatedAt: created,
		Rows: []identity.Identity{
			{Name: "Udin Saputra", Identifier: "20250307001", Username: "20250307001", Password: "udinsap001"},
		},
	}
}

func TestSaveGet(t *testing.T) {
	v, _ := openTestVault(t)

	b := testBatch("b1", time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC))
	b.Failed = []Failure{{Identity: identity.Identity{Name: "Siti"}, Error: "username already taken"}}
	if err := v.Save(b); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := v.Get("b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0].Password != "udinsap001" {
		t.Errorf("rows: got %+v", got.Rows)
	}
	if len(got.Failed) != 1 || got.Failed[0].Error != "username already taken" {
		t.Errorf("failed: got %+v", got.Failed)
	}
	if !got.Date.Equal(b.Date) {
		t.Errorf("date: got %v, want %v", got.Date, b.Date)
	}
}

func TestGetMissing(t *testing.T) {
	v, _ := openTestVault(t)

	_, err := v.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err: got %v, want ErrNotFound", err)
	}
}

func TestGetReadsOneBatch(t *testing.T) {
	v, fsys := openTestVault(t)

	if err := v.Save(testBatch("b1", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := fsys.WriteFile("batches/broken.enc", []byte("not ciphertext"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := v.Get("b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "b1" {
		t.Errorf("id: got %q, want b1", got.ID)
	}
	if _, err := v.List(); err == nil {
		t.Error("list should fail on the unreadable batch")
	}
}

func TestGetRejectsPaths(t *testing.T) {
	v, _ := openTestVault(t)

	for _, id := range []string{"", "..", "../salt", "a/b", `a\b`} {
		if _, err := v.Get(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("get %q: got %v, want ErrNotFound", id, err)
		}
		if err := v.Delete(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("delete %q: got %v, want ErrNotFound", id, err)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	v, _ := openTestVault(t)

	base := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "newest", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "newest": 2 * time.Hour}[id]
		if err := v.Save(testBatch(id, base.Add(offset))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	list, err := v.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"newest", "mid", "old"}
	if len(list) != len(want) {
		t.Fatalf("len: got %d, want %d", len(list), len(want))
	}
	for i := range want {
		if list[i].ID != want[i] {
			t.Errorf("[%d]: got %s, want %s", i, list[i].ID, want[i])
		}
	}
}

func TestDelete(t *testing.T) {
	v, _ := openTestVault(t)

	if err := v.Save(testBatch("b1", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := v.Delete("b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := v.Get("b1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: got %v", err)
	}
	if err := v.Delete("b1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestSaveEmptyID(t *testing.T) {
	v, _ := openTestVault(t)
	if err := v.Save(Batch{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestReopen(t *testing.T) {
	fsys := zfilesystem.NewMemFS()

	if Exists(fsys) {
		t.Fatal("fresh fs should have no vault")
	}

	v, err := Open(fsys, []byte("master"))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Save(testBatch("b1", time.Now())); err != nil {
		t.Fatal(err)
	}
	v.Close()

	if !Exists(fsys) {
		t.Fatal("vault should exist after first open")
	}

	v2, err := Open(fsys, []byte("master"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer v2.Close()

	if _, err := v2.Get("b1"); err != nil {
		t.Errorf("get after reopen: %v", err)
	}
}

func TestWrongPassword(t *testing.T) {
	fsys := zfilesystem.NewMemFS()

	v, err := Open(fsys, []byte("correct"))
	if err != nil {
		t.Fatal(err)
	}
	v.Close()

	_, err = Open(fsys, []byte("wrong"))
	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("err: got %v, want ErrWrongPassword", err)
	}
}

func TestNewBatch(t *testing.T) {
	now := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	a := NewBatch(now, nil, now)
	b := NewBatch(now, nil, now)

	if len(a.ID) != 8 {
		t.Errorf("id length: got %d, want 8", len(a.ID))
	}
	if a.ID == b.ID {
		t.Error("ids should differ")
	}
	if !a.CreatedAt.Equal(now) {
		t.Errorf("created at: got %v", a.CreatedAt)
	}
}
