// Package vault keeps an encrypted history of generated student batches.
// Batches hold initial passwords, so they live in a zstore protected by a
// master password rather than in plain files.
package vault

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/zroster/internal/identity"
)

const (
	saltFile    = "salt"
	batchesName = "batches"
)

// ErrNotFound is returned when a batch does not exist.
var ErrNotFound = errors.New("batch not found")

// ErrWrongPassword is returned when the master password does not open the vault.
var ErrWrongPassword = zstore.ErrWrongPassword

// Failure records a name that could not be turned into an account.
type Failure struct {
	Identity identity.Identity `json:"identity"`
	Error    string            `json:"error"`
}

// Batch is one import run.
type Batch struct {
	ID        string              `json:"id"`
	Date      time.Time           `json:"date"` // reference date of the identifiers
	ClassID   string              `json:"class_id,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	Rows      []identity.Identity `json:"rows"`
	Failed    []Failure           `json:"failed,omitempty"`
}

// NewBatch returns a batch with a fresh ID.
func NewBatch(date time.Time, rows []identity.Identity, now time.Time) Batch {
	return Batch{
		ID:        uuid.NewString()[:8],
		Date:      date,
		CreatedAt: now,
		Rows:      rows,
	}
}

// Vault is an open batch history.
type Vault struct {
	store   *zstore.Store
	batches *zstore.Collection[Batch]
}

// Exists reports whether a vault has been initialized in fsys.
func Exists(fsys zfilesystem.ReadWriteFileFS) bool {
	_, err := fsys.ReadFile(saltFile)
	return err == nil
}

// Open opens the vault in fsys, creating it on first use.
func Open(fsys zfilesystem.ReadWriteFileFS, password []byte) (*Vault, error) {
	s, err := zstore.Open(fsys, password)
	if err != nil {
		if errors.Is(err, zstore.ErrWrongPassword) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("open vault: %w", err)
	}

	col, err := zstore.NewCollection[Batch](s, batchesName)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open vault: %w", err)
	}

	return &Vault{store: s, batches: col}, nil
}

// Save stores b, replacing any batch with the same ID.
func (v *Vault) Save(b Batch) error {
	if b.ID == "" {
		return errors.New("save batch: empty id")
	}
	if err := v.batches.Put(b.ID, b); err != nil {
		return fmt.Errorf("save batch %s: %w", b.ID, err)
	}
	return nil
}

// Get returns the batch with the given ID.
func (v *Vault) Get(id string) (Batch, error) {
	if !validID(id) {
		return Batch{}, ErrNotFound
	}
	b, err := v.batches.Get(id)
	if errors.Is(err, zstore.ErrNotFound) {
		return Batch{}, ErrNotFound
	}
	if err != nil {
		return Batch{}, fmt.Errorf("get batch %s: %w", id, err)
	}
	return b, nil
}

// List returns all batches, newest first.
func (v *Vault) List() ([]Batch, error) {
	all, err := v.batches.List()
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	// zstore does not guarantee order
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

// Delete removes the batch with the given ID.
func (v *Vault) Delete(id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	err := v.batches.Delete(id)
	if errors.Is(err, zstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete batch %s: %w", id, err)
	}
	return nil
}

// validID rejects IDs that would escape the collection directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// Close locks the vault.
func (v *Vault) Close() {
	v.store.Close()
}
