package versions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/index"
	"github.com/starford/scribe/internal/storage"
)

func testCache(t *testing.T, opts Options) (*Cache, storage.Provider) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "scribe-versions-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return New(fs, db, slog.New(slog.NewTextHandler(io.Discard, nil)), opts), fs
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestSnapshot_StoresTextVerbatim(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	c, fs := testCache(t, Options{Now: fixedClock(at)})
	text := "# Technical Requirements Document\n\n## Overview\nLogin.\n"

	v, err := c.Snapshot(context.Background(), "p1", text)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if v.Name != "20261015_093000" || v.Ref != "versions/p1/20261015_093000.md" {
		t.Errorf("version = %+v", v)
	}
	data, err := fs.Read(v.Ref)
	if err != nil || string(data) != text {
		t.Errorf("stored %q, %v", data, err)
	}

	got, err := c.Read(context.Background(), "p1", v.Name)
	if err != nil || got != text {
		t.Errorf("Read = %q, %v", got, err)
	}
}

func TestSnapshot_SameSecondGetsSuffix(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	c, _ := testCache(t, Options{Now: fixedClock(at)})
	ctx := context.Background()

	var names []string
	for _, text := range []string{"one", "two", "three"} {
		v, err := c.Snapshot(ctx, "p1", text)
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, v.Name)
	}
	want := []string{"20261015_093000", "20261015_093000-1", "20261015_093000-2"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names = %v, want %v", names, want)
			break
		}
	}

	list, _ := c.List(ctx, "p1")
	if len(list) != 3 {
		t.Errorf("List = %d entries, want 3", len(list))
	}
}

func TestSnapshot_PrunesOldest(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	clock := at
	c, fs := testCache(t, Options{MaxPerProject: 2, Now: func() time.Time { return clock }})
	ctx := context.Background()

	var first string
	for i := range 4 {
		clock = at.Add(time.Duration(i) * time.Second)
		v, err := c.Snapshot(ctx, "p1", "text")
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = v.Ref
		}
	}

	list, _ := c.List(ctx, "p1")
	if len(list) != 2 || list[0].Name != "20261015_093003" || list[1].Name != "20261015_093002" {
		t.Errorf("kept = %+v", list)
	}
	if ok, _ := fs.Exists(first); ok {
		t.Error("oldest snapshot file not pruned")
	}
}

func TestRead_Errors(t *testing.T) {
	c, _ := testCache(t, Options{})
	ctx := context.Background()
	if _, err := c.Read(ctx, "p1", "../../documents/p1"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.Read(ctx, "p1", "20261015_093000"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSnapshot_CancelledContext(t *testing.T) {
	c, _ := testCache(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Snapshot(ctx, "p1", "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
