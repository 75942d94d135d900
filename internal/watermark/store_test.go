package watermark

import (
	"context"
	"testing"
	"time"
)

func TestCommitAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := Mark{Kind: KindTime, At: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), ETag: `"aa"`}
	if err := store.Commit(ctx, "ni/labview-icon-editor", "issues", first); err != nil {
		t.Fatal(err)
	}

	later := Mark{Kind: KindTime, At: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), ETag: `"bb"`}
	if err := store.Commit(ctx, "ni/labview-icon-editor", "issues", later); err != nil {
		t.Fatal(err)
	}

	got, found, err := store.Get(ctx, "ni/labview-icon-editor", "issues")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected mark to exist")
	}
	if !got.At.Equal(later.At) {
		t.Errorf("cursor = %v, want %v", got.At, later.At)
	}
	if got.ETag != `"bb"` {
		t.Errorf("etag = %q, want %q", got.ETag, `"bb"`)
	}
}

func TestCommitNeverRegresses(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	newer := Mark{Kind: KindTime, At: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}
	older := Mark{Kind: KindTime, At: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}

	if err := store.Commit(ctx, "ni/labview-icon-editor", "pulls", newer); err != nil {
		t.Fatal(err)
	}
	if err := store.Commit(ctx, "ni/labview-icon-editor", "pulls", older); err != nil {
		t.Fatal(err)
	}

	got, _, _ := store.Get(ctx, "ni/labview-icon-editor", "pulls")
	if !got.At.Equal(newer.At) {
		t.Errorf("cursor regressed to %v, want %v", got.At, newer.At)
	}
}

func TestCommitKeepsOldETagWhenNewIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Commit(ctx, "ni/labview-icon-editor", "issues",
		Mark{Kind: KindTime, At: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), ETag: `"aa"`}); err != nil {
		t.Fatal(err)
	}
	if err := store.Commit(ctx, "ni/labview-icon-editor", "issues",
		Mark{Kind: KindTime, At: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatal(err)
	}

	got, _, _ := store.Get(ctx, "ni/labview-icon-editor", "issues")
	if got.ETag != `"aa"` {
		t.Errorf("etag = %q, want old etag to survive empty update", got.ETag)
	}
	if !got.At.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("cursor = %v, want advanced cursor", got.At)
	}
}

func TestIDCursorOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Commit(ctx, "ni/labview-icon-editor", "issue_comments",
		Mark{Kind: KindID, ID: 900}); err != nil {
		t.Fatal(err)
	}
	if err := store.Commit(ctx, "ni/labview-icon-editor", "issue_comments",
		Mark{Kind: KindID, ID: 750}); err != nil {
		t.Fatal(err)
	}

	got, _, _ := store.Get(ctx, "ni/labview-icon-editor", "issue_comments")
	if got.ID != 900 {
		t.Errorf("cursor id = %d, want 900", got.ID)
	}
}

func TestMarksAreScopedPerRepoAndResource(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Commit(ctx, "ni/labview-icon-editor", "issues",
		Mark{Kind: KindID, ID: 1}); err != nil {
		t.Fatal(err)
	}

	if _, found, _ := store.Get(ctx, "ni/labview-icon-editor", "pulls"); found {
		t.Error("mark leaked across resources")
	}
	if _, found, _ := store.Get(ctx, "other/repo", "issues"); found {
		t.Error("mark leaked across repos")
	}
}
