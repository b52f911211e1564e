package points

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-lametric/migrations"
)

// openTestRepo returns a repository over a migrated in-memory database.
func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_EnsureAndGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	def := Definition{Address: AddrVolume, Name: "Volume", Type: TypeNumber, Role: RoleLevel, Readable: true, Writable: true}

	created, err := repo.Ensure(ctx, def)
	if err != nil || !created {
		t.Fatalf("Ensure() = (%v, %v), want (true, nil)", created, err)
	}

	renamed := def
	renamed.Name = "Renamed"
	created, err = repo.Ensure(ctx, renamed)
	if err != nil || created {
		t.Fatalf("second Ensure() = (%v, %v), want (false, nil)", created, err)
	}

	p, err := repo.Get(ctx, AddrVolume)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Name != "Volume" {
		t.Errorf("Name = %q, want existing metadata kept", p.Name)
	}
	if !p.Writable || !p.Readable || p.Type != TypeNumber {
		t.Errorf("definition = %+v", p.Definition)
	}
	if p.Value != nil || p.UpdatedAt != nil {
		t.Errorf("new point has value %v / updated %v, want none", p.Value, p.UpdatedAt)
	}
}

func TestSQLiteRepository_UpdateValue(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for _, def := range FixedDefinitions() {
		if _, err := repo.Ensure(ctx, def); err != nil {
			t.Fatalf("Ensure(%s) error = %v", def.Address, err)
		}
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		address string
		value   any
		ack     bool
	}{
		{AddrVolume, 40.0, true},
		{AddrBluetoothActive, false, false},
		{AddrWifiSSID, "home", true},
	}

	for _, tt := range tests {
		if err := repo.UpdateValue(ctx, tt.address, tt.value, tt.ack, at); err != nil {
			t.Fatalf("UpdateValue(%s) error = %v", tt.address, err)
		}
		p, err := repo.Get(ctx, tt.address)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", tt.address, err)
		}
		if p.Value != tt.value || p.Ack != tt.ack {
			t.Errorf("%s = (%v, %v), want (%v, %v)", tt.address, p.Value, p.Ack, tt.value, tt.ack)
		}
		if p.UpdatedAt == nil || !p.UpdatedAt.Equal(at) {
			t.Errorf("%s UpdatedAt = %v, want %v", tt.address, p.UpdatedAt, at)
		}
	}

	err := repo.UpdateValue(ctx, "meta.missing", 1, true, at)
	if !errors.Is(err, ErrPointNotFound) {
		t.Errorf("UpdateValue(missing) error = %v, want ErrPointNotFound", err)
	}
}

func TestSQLiteRepository_GetMissing(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.Get(context.Background(), "meta.missing")
	if !errors.Is(err, ErrPointNotFound) {
		t.Errorf("Get() error = %v, want ErrPointNotFound", err)
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	defs := FixedDefinitions()

	for _, def := range defs {
		if _, err := repo.Ensure(ctx, def); err != nil {
			t.Fatalf("Ensure() error = %v", err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != len(defs) {
		t.Errorf("List() returned %d points, want %d", len(list), len(defs))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Address > list[i].Address {
			t.Fatalf("List() not ordered by address")
		}
	}
}

func TestRegistry_WithSQLite(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	reg := NewRegistry(repo)
	if _, err := reg.EnsureAll(ctx, FixedDefinitions()); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}
	if err := reg.Write(ctx, AddrBrightness, 40, true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// A restarted registry sees the persisted value.
	restarted := NewRegistry(repo)
	if err := restarted.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	p, err := restarted.Get(AddrBrightness)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Value != 40.0 || !p.Ack {
		t.Errorf("brightness = (%v, %v), want (40, true)", p.Value, p.Ack)
	}
}
