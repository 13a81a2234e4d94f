package zipcache_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/yarnpkg/pnp-go/pkg/ziparchive"
	"github.com/yarnpkg/pnp-go/pkg/zipcache"
)

func TestGetCoalescesConcurrentOpens(t *testing.T) {
	var opens int64
	open := func(path string) (*ziparchive.Zip, error) {
		atomic.AddInt64(&opens, 1)
		return ziparchive.Open(ziparchive.Bytes(emptyZipFixture(t)))
	}

	c, err := zipcache.New(8, open)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			_, err := c.Get(ctx, "archive.zip")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got := atomic.LoadInt64(&opens); got != 1 {
		t.Errorf("open called %d times; want exactly 1", got)
	}
}

func TestGetDoesNotCacheFailure(t *testing.T) {
	var calls int64
	open := func(path string) (*ziparchive.Zip, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			return nil, fmt.Errorf("boom")
		}
		return ziparchive.Open(ziparchive.Bytes(emptyZipFixture(t)))
	}

	c, err := zipcache.New(8, open)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if _, err := c.Get(ctx, "archive.zip"); err == nil {
		t.Fatal("expected error on first open")
	}
	if _, err := c.Get(ctx, "archive.zip"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("open called %d times; want 2", got)
	}
}

func TestActInvokesCallbackWithArchive(t *testing.T) {
	open := func(path string) (*ziparchive.Zip, error) {
		return ziparchive.Open(ziparchive.Bytes(emptyZipFixture(t)))
	}
	c, err := zipcache.New(4, open)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	got, err := zipcache.Act(ctx, c, "archive.zip", func(z *ziparchive.Zip) string {
		if z == nil {
			return "nil"
		}
		return "ok"
	})
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if got != "ok" {
		t.Errorf("Act result = %q; want ok", got)
	}
}

func emptyZipFixture(t *testing.T) []byte {
	t.Helper()
	// Minimal valid empty zip: just the end-of-central-directory
	// record with a zero-length central directory.
	return []byte{
		0x50, 0x4b, 0x05, 0x06, // signature
		0, 0, 0, 0, // disk numbers
		0, 0, 0, 0, // entry counts
		0, 0, 0, 0, // central directory size
		0, 0, 0, 0, // central directory offset
		0, 0, // comment length
	}
}
