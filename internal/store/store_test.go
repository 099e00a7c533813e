package store

import (
	"context"
	"errors"
	"testing"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var bookings = &Table{
	Name: "bookings",
	Fields: []Field{
		{Name: "patient", MaxLength: 10},
		{Name: "provider", MaxLength: 10},
		{Name: "note", MaxLength: 20, Nullable: true},
		{Name: "slot", MaxLength: 4},
	},
	Unique: [][]string{{"provider", "slot"}},
}

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every new connection would get its own empty :memory: database
	sqlDB.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE bookings (
			patient VARCHAR(10) NOT NULL,
			provider VARCHAR(10) NOT NULL,
			note VARCHAR(20),
			slot VARCHAR(4) NOT NULL
		);`,
		`CREATE UNIQUE INDEX uq_bookings_provider_slot ON bookings (provider, slot);`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return NewGorm(db)
}

// forEachStore runs fn against the in-memory store and a sqlite-backed GORM store.
func forEachStore(t *testing.T, fn func(t *testing.T, s RecordStore)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory(bookings)) })
	t.Run("gorm", func(t *testing.T) { fn(t, newGormStore(t)) })
}

func mustInsert(t *testing.T, s RecordStore, values ...string) {
	t.Helper()
	if err := s.Insert(context.Background(), bookings, values); err != nil {
		t.Fatalf("insert %v: %v", values, err)
	}
}

func TestInsert_SchemaChecks(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore) {
		ctx := context.Background()
		cases := []struct {
			name   string
			values []string
		}{
			{"too few values", []string{"1", "2", "x"}},
			{"too many values", []string{"1", "2", "x", "0800", "extra"}},
			{"value too long", []string{"12345678901", "2", "x", "0800"}},
			{"absent in required field", []string{Absent, "2", "x", "0800"}},
		}
		for _, tc := range cases {
			err := s.Insert(ctx, bookings, tc.values)
			if !errors.Is(err, ErrSchemaMismatch) {
				t.Errorf("%s: expected ErrSchemaMismatch, got %v", tc.name, err)
			}
		}
	})
}

func TestQueries(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore) {
		ctx := context.Background()
		mustInsert(t, s, "p1", "d1", "cleaning", "0800")
		mustInsert(t, s, "p1", "d2", Absent, "0900")
		mustInsert(t, s, "p2", "d1", "x-ray", "1000")

		ok, err := s.Exists(ctx, bookings, Where("patient", "p1").And("provider", "d2"))
		if err != nil || !ok {
			t.Fatalf("expected match, got %v %v", ok, err)
		}
		ok, err = s.Exists(ctx, bookings, Where("patient", "p2").And("provider", "d2"))
		if err != nil || ok {
			t.Fatalf("expected no match, got %v %v", ok, err)
		}

		rows, err := s.QueryAll(ctx, bookings, Where("patient", "p1"))
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}

		rows, err = s.QueryAll(ctx, bookings, Where("patient", "nobody"))
		if err != nil || len(rows) != 0 {
			t.Fatalf("expected empty result without error, got %d %v", len(rows), err)
		}

		// Absent is matched literally, never as a wildcard.
		rows, err = s.QueryAll(ctx, bookings, Where("note", Absent))
		if err != nil || len(rows) != 1 || rows[0].Get("provider") != "d2" {
			t.Fatalf("absent lookup: %v %v", rows, err)
		}

		note, err := s.GetField(ctx, bookings, Where("provider", "d1").And("slot", "1000"), "note")
		if err != nil || note != "x-ray" {
			t.Fatalf("get field: %q %v", note, err)
		}

		if _, err := s.GetOne(ctx, bookings, Where("provider", "d9")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestInvalidPredicates(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore) {
		ctx := context.Background()
		preds := map[string]Predicate{
			"empty":          {},
			"count mismatch": Match([]string{"patient", "slot"}, []string{"p1"}),
			"unknown field":  Where("room", "4"),
		}
		for name, p := range preds {
			if _, err := s.Exists(ctx, bookings, p); !errors.Is(err, ErrInvalidPredicate) {
				t.Errorf("%s: expected ErrInvalidPredicate, got %v", name, err)
			}
			if _, err := s.Delete(ctx, bookings, p); !errors.Is(err, ErrInvalidPredicate) {
				t.Errorf("%s: delete expected ErrInvalidPredicate, got %v", name, err)
			}
		}
	})
}

func TestUpdateAndDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore) {
		ctx := context.Background()
		mustInsert(t, s, "p1", "d1", "cleaning", "0800")
		mustInsert(t, s, "p1", "d2", "cleaning", "0900")

		n, err := s.Update(ctx, bookings, Where("patient", "p1"), Set("note", "root canal"))
		if err != nil || n != 2 {
			t.Fatalf("update: %d %v", n, err)
		}
		n, err = s.Update(ctx, bookings, Where("patient", "nobody"), Set("note", "x"))
		if err != nil || n != 0 {
			t.Fatalf("update without match should be a no-op, got %d %v", n, err)
		}

		n, err = s.Delete(ctx, bookings, Where("provider", "d1"))
		if err != nil || n != 1 {
			t.Fatalf("delete: %d %v", n, err)
		}
		n, err = s.Delete(ctx, bookings, Where("provider", "d1"))
		if err != nil || n != 0 {
			t.Fatalf("second delete should be a no-op, got %d %v", n, err)
		}
	})
}

func TestInsertUnless(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore) {
		ctx := context.Background()
		mustInsert(t, s, "p1", "d1", "cleaning", "0800")

		err := s.InsertUnless(ctx, bookings, []string{"p2", "d2", "x", "0800"},
			Where("provider", "d2").And("slot", "0800"),
			Where("patient", "p1").And("slot", "0800"),
		)
		var ce *ConflictError
		if !errors.As(err, &ce) || ce.Guard != 1 {
			t.Fatalf("expected guard 1 conflict, got %v", err)
		}
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("conflict should unwrap to ErrConflict")
		}

		// Unique key (provider, slot) still applies without guards.
		err = s.InsertUnless(ctx, bookings, []string{"p3", "d1", "x", "0800"})
		if !errors.As(err, &ce) || ce.Guard != -1 {
			t.Fatalf("expected unique key conflict, got %v", err)
		}

		if err := s.InsertUnless(ctx, bookings, []string{"p2", "d1", "x", "0900"}, Where("provider", "d1").And("slot", "0900")); err != nil {
			t.Fatalf("insert unless: %v", err)
		}
	})
}

func TestReplace(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore) {
		ctx := context.Background()
		mustInsert(t, s, "p1", "d1", "cleaning", "0800")
		mustInsert(t, s, "p2", "d1", "x-ray", "0900")

		orig, err := s.GetOne(ctx, bookings, Where("patient", "p1"))
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		// Moving onto an occupied slot is rejected and leaves the row in place.
		moved := orig.With("slot", "0900")
		if _, err := s.Replace(ctx, bookings, orig.Predicate(), moved.Values()); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if ok, _ := s.Exists(ctx, bookings, orig.Predicate()); !ok {
			t.Fatalf("original row should survive a failed replace")
		}

		edited := orig.With("note", "extraction")
		n, err := s.Replace(ctx, bookings, orig.Predicate(), edited.Values())
		if err != nil || n != 1 {
			t.Fatalf("replace: %d %v", n, err)
		}
		note, _ := s.GetField(ctx, bookings, Where("patient", "p1"), "note")
		if note != "extraction" {
			t.Fatalf("expected edited note, got %q", note)
		}

		// A stale key matches nothing and inserts nothing.
		n, err = s.Replace(ctx, bookings, orig.Predicate(), orig.With("slot", "1500").Values())
		if err != nil || n != 0 {
			t.Fatalf("stale replace: %d %v", n, err)
		}
		rows, _ := s.QueryAll(ctx, bookings, Where("patient", "p1"))
		if len(rows) != 1 {
			t.Fatalf("expected 1 row for p1, got %d", len(rows))
		}
	})
}

func TestGormStore_Unavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable server", func(t *testing.T) {
		db, err := gorm.Open(gormmysql.New(gormmysql.Config{
			DSN:                       "root@tcp(127.0.0.1:1)/clinic?timeout=1s",
			SkipInitializeWithVersion: true,
		}), &gorm.Config{
			DisableAutomaticPing: true,
			TranslateError:       true,
			Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		s := NewGorm(db)
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})

		if err := s.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("ping: expected ErrStoreUnavailable, got %v", err)
		}
		if _, err := s.Exists(ctx, bookings, Where("patient", "p1")); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("exists: expected ErrStoreUnavailable, got %v", err)
		}
		if err := s.Insert(ctx, bookings, []string{"p1", "d1", Absent, "0800"}); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("insert: expected ErrStoreUnavailable, got %v", err)
		}
	})

	t.Run("closed handle", func(t *testing.T) {
		s := newGormStore(t)
		sqlDB, err := s.db.DB()
		if err != nil {
			t.Fatalf("db: %v", err)
		}
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		if _, err := s.QueryAll(ctx, bookings, Where("patient", "p1")); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("query: expected ErrStoreUnavailable, got %v", err)
		}
		if _, err := s.Delete(ctx, bookings, Where("patient", "p1")); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("delete: expected ErrStoreUnavailable, got %v", err)
		}
		if err := s.InsertUnless(ctx, bookings, []string{"p1", "d1", Absent, "0800"}); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("insert unless: expected ErrStoreUnavailable, got %v", err)
		}
	})
}
