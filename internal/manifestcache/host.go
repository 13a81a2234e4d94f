// Package manifestcache provides the default ResolutionConfig.Host
// implementation: it walks an issuer path's ancestors for a .pnp.cjs
// manifest and caches the hydrated result, invalidating an entry when
// the underlying file's modification time changes.
//
// This is the one place in the module that talks to zlog; the
// resolution engine itself stays silent so it can be embedded in a
// host (bundler, test runner, editor tooling) with its own logging
// conventions, per original_source/src/lib.rs's ResolutionHost split
// between the trait and its default filesystem-backed implementation.
package manifestcache

import (
	"context"
	"os"
	"sync"

	"github.com/quay/zlog"
	"golang.org/x/sync/singleflight"

	pnp "github.com/yarnpkg/pnp-go"
)

type entry struct {
	manifest *pnp.Manifest
	modTime  int64
}

// Host caches hydrated manifests keyed by their on-disk path. The zero
// value is ready to use.
type Host struct {
	mu      sync.RWMutex
	entries map[string]entry
	sf      singleflight.Group
}

// New returns a ready-to-use Host.
func New() *Host {
	return &Host{entries: make(map[string]entry)}
}

// FindPnPManifest implements pnp.ManifestFinder.
func (h *Host) FindPnPManifest(ctx context.Context, issuerPath string) (*pnp.Manifest, error) {
	manifestPath, ok := pnp.FindClosestManifestPath(issuerPath)
	if !ok {
		zlog.Debug(ctx).Str("issuer", issuerPath).Msg("no .pnp.cjs found above issuer")
		return nil, nil
	}

	info, err := os.Stat(manifestPath)
	if err != nil {
		return nil, err
	}
	modTime := info.ModTime().UnixNano()

	h.mu.RLock()
	e, ok := h.entries[manifestPath]
	h.mu.RUnlock()
	if ok && e.modTime == modTime {
		return e.manifest, nil
	}

	v, err, _ := h.sf.Do(manifestPath, func() (any, error) {
		h.mu.RLock()
		e, ok := h.entries[manifestPath]
		h.mu.RUnlock()
		if ok && e.modTime == modTime {
			return e.manifest, nil
		}

		zlog.Debug(ctx).Str("path", manifestPath).Msg("hydrating manifest")
		m, err := pnp.Load(manifestPath)
		if err != nil {
			zlog.Error(ctx).Err(err).Str("path", manifestPath).Msg("failed to hydrate manifest")
			return nil, err
		}

		h.mu.Lock()
		if h.entries == nil {
			h.entries = make(map[string]entry)
		}
		h.entries[manifestPath] = entry{manifest: m, modTime: modTime}
		h.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pnp.Manifest), nil
}

// Forget drops the cached entry for manifestPath, if any.
func (h *Host) Forget(manifestPath string) {
	h.mu.Lock()
	delete(h.entries, manifestPath)
	h.mu.Unlock()
}
