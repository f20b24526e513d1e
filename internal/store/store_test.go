package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/store"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/testsupport"
)

func TestRecordPostedIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := s.RecordPosted(ctx, "abc123", "0f1e2d3c4b5a6978"); err != nil {
		t.Fatalf("RecordPosted: %v", err)
	}
	if err := s.RecordPosted(ctx, "abc123", "0f1e2d3c4b5a6978"); err != nil {
		t.Fatalf("RecordPosted (repeat): %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one record, got %d", count)
	}

	posted, err := s.HasPosted(ctx, "abc123")
	if err != nil {
		t.Fatalf("HasPosted: %v", err)
	}
	if !posted {
		t.Fatal("expected HasPosted to be true after upsert")
	}
}

func TestRecordPostedOverwritesFingerprint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := s.RecordPosted(ctx, "abc123", "aaaaaaaaaaaaaaaa"); err != nil {
		t.Fatalf("RecordPosted: %v", err)
	}
	if err := s.RecordPosted(ctx, "abc123", "bbbbbbbbbbbbbbbb"); err != nil {
		t.Fatalf("RecordPosted: %v", err)
	}

	records, err := s.ListPosted(ctx, 0)
	if err != nil {
		t.Fatalf("ListPosted: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].ImageFingerprint != "bbbbbbbbbbbbbbbb" {
		t.Fatalf("fingerprint not overwritten: %q", records[0].ImageFingerprint)
	}
}

func TestHasPostedImageMatchesExactFingerprintOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := s.RecordPosted(ctx, "one", "0f1e2d3c4b5a6978"); err != nil {
		t.Fatalf("RecordPosted: %v", err)
	}

	dup, err := s.HasPostedImage(ctx, "0f1e2d3c4b5a6978")
	if err != nil {
		t.Fatalf("HasPostedImage: %v", err)
	}
	if !dup {
		t.Fatal("expected recorded fingerprint to match")
	}

	other, err := s.HasPostedImage(ctx, "ffffffffffffffff")
	if err != nil {
		t.Fatalf("HasPostedImage: %v", err)
	}
	if other {
		t.Fatal("unrecorded fingerprint must not match")
	}

	empty, err := s.HasPostedImage(ctx, "")
	if err != nil {
		t.Fatalf("HasPostedImage: %v", err)
	}
	if empty {
		t.Fatal("empty fingerprint must never match")
	}
}

func TestCooldownRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	got, err := s.GetCooldownUntil(ctx)
	if err != nil {
		t.Fatalf("GetCooldownUntil: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no cooldown on fresh store, got %v", got)
	}

	until := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)
	if err := s.SetCooldownUntil(ctx, &until); err != nil {
		t.Fatalf("SetCooldownUntil: %v", err)
	}

	got, err = s.GetCooldownUntil(ctx)
	if err != nil {
		t.Fatalf("GetCooldownUntil: %v", err)
	}
	if got == nil || !got.Equal(until) {
		t.Fatalf("cooldown round trip mismatch: got %v, want %v", got, until)
	}

	if err := s.SetCooldownUntil(ctx, nil); err != nil {
		t.Fatalf("SetCooldownUntil(nil): %v", err)
	}
	got, err = s.GetCooldownUntil(ctx)
	if err != nil {
		t.Fatalf("GetCooldownUntil: %v", err)
	}
	if got != nil {
		t.Fatalf("expected cleared cooldown, got %v", got)
	}
}

func TestCooldownIgnoresGarbageValue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := s.SetMetadata(ctx, "next_allowed_post_utc", "not-a-timestamp"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	got, err := s.GetCooldownUntil(ctx)
	if err != nil {
		t.Fatalf("GetCooldownUntil: %v", err)
	}
	if got != nil {
		t.Fatalf("unparseable value should read as absent, got %v", got)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := first.RecordPosted(ctx, "abc123", "0f1e2d3c4b5a6978"); err != nil {
		t.Fatalf("RecordPosted: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	posted, err := second.HasPosted(ctx, "abc123")
	if err != nil {
		t.Fatalf("HasPosted after reopen: %v", err)
	}
	if !posted {
		t.Fatal("expected record to survive reopen")
	}
}

func TestListPostedNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"old", "mid", "new"} {
		if err := s.RecordPosted(ctx, id, "fp-"+id); err != nil {
			t.Fatalf("RecordPosted: %v", err)
		}
	}
	records, err := s.ListPosted(ctx, 2)
	if err != nil {
		t.Fatalf("ListPosted: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("limit not applied, got %d records", len(records))
	}
}
