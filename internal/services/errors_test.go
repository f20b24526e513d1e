package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRateLimited, "bluesky", "login", "session refused", base)

	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate-limit classification, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
	for _, want := range []string{"bluesky", "login", "session refused", "boom"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "reddit", "fetch", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestAbortsRun(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		aborts bool
	}{
		{"storage", services.Wrap(services.ErrStorage, "store", "open", "", errors.New("locked")), true},
		{"rate limited", services.Wrap(services.ErrRateLimited, "bluesky", "login", "", nil), true},
		{"transient", services.Wrap(services.ErrTransient, "pipeline", "download", "", nil), false},
		{"protocol", services.Wrap(services.ErrProtocol, "bluesky", "upload", "", nil), false},
		{"authentication", services.Wrap(services.ErrAuthentication, "bluesky", "login", "", nil), false},
	}
	for _, tc := range cases {
		if got := services.AbortsRun(tc.err); got != tc.aborts {
			t.Errorf("%s: AbortsRun = %v, want %v", tc.name, got, tc.aborts)
		}
	}
}
