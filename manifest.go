package pnp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yarnpkg/pnp-go/pkg/orderedmap"
	"github.com/yarnpkg/pnp-go/pkg/trie"
	"github.com/yarnpkg/pnp-go/pkg/vpath"
)

// Manifest is a hydrated, immutable PnP runtime-state document. It is
// constructed once by Load and thereafter safe to share read-only
// across goroutines — see original_source/src/lib.rs's Manifest, whose
// location_trie and package_registry_data are likewise built once and
// never mutated again.
type Manifest struct {
	ManifestPath string
	ManifestDir  string

	EnableTopLevelFallback bool
	IgnorePattern          *regexp.Regexp

	DependencyTreeRoots map[PackageLocator]struct{}

	FallbackPool          map[string]*PackageDependency
	FallbackExclusionList map[string]map[string]struct{}

	// PackageRegistryData maps a package name to its reference ->
	// PackageInformation table, preserving the JSON payload's
	// insertion order per reference, matching
	// original_source/src/manifest.rs's IndexMap usage.
	PackageRegistryData map[string]*orderedmap.Map[string, *PackageInformation]

	locationTrie *trie.Trie[PackageLocator]
}

// IsExcludedFromFallback reports whether locator is listed in the
// manifest's fallback exclusion list, per original_source/src/lib.rs's
// is_excluded_from_fallback: membership is checked by reference, not
// merely by name.
func (m *Manifest) IsExcludedFromFallback(locator PackageLocator) bool {
	refs, ok := m.FallbackExclusionList[locator.Name]
	if !ok {
		return false
	}
	_, ok = refs[locator.Reference]
	return ok
}

// IsDependencyTreeRoot reports whether locator is a workspace or the
// top-level package, used to vary error-message wording.
func (m *Manifest) IsDependencyTreeRoot(locator PackageLocator) bool {
	_, ok := m.DependencyTreeRoots[locator]
	return ok
}

// Package returns the registry entry for locator.
func (m *Manifest) Package(locator PackageLocator) (*PackageInformation, bool) {
	refs, ok := m.PackageRegistryData[locator.Name]
	if !ok {
		return nil, false
	}
	return refs.Get(locator.Reference)
}

// FindLocator returns the owning locator for the deepest registered
// ancestor of path, or false if the ignore pattern matches or no
// ancestor is registered. Per spec.md's prescribed (latest-revision)
// behavior, the ignore pattern is matched against path *relative to*
// manifest_dir, grounded on original_source/src/lib.rs's find_locator
// using pathdiff::diff_paths(path, &manifest_dir).
func (m *Manifest) FindLocator(path string) (PackageLocator, bool) {
	if m.IgnorePattern != nil {
		rel, err := filepath.Rel(m.ManifestDir, path)
		if err == nil {
			if m.IgnorePattern.MatchString(vpath.Normalize(rel)) {
				return PackageLocator{}, false
			}
		}
	}
	return m.locationTrie.GetAncestorValue(vpath.Normalize(path))
}

const hydrationMarkerPattern = `(const\s+RAW_RUNTIME_STATE\s*=\s*|hydrateRuntimeState\(JSON\.parse\()'`

var hydrationMarker = regexp.MustCompile(hydrationMarkerPattern)

// Load reads and hydrates the PnP manifest at path, per spec.md §4.5.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &FailedManifestHydrationError{
			Message:      fmt.Sprintf("failed to read manifest %s: %v", path, err),
			ManifestPath: path,
			Inner: &Error{
				Kind:    ErrInternal,
				Op:      "pnp.Load",
				Message: "reading manifest file",
				Inner:   err,
			},
		}
	}
	return loadFromBytes(content, path)
}

func loadFromBytes(content []byte, path string) (*Manifest, error) {
	loc := hydrationMarker.FindIndex(content)
	if loc == nil {
		return nil, &FailedManifestHydrationError{
			Message:      fmt.Sprintf("failed to locate the runtime state payload in %s", path),
			ManifestPath: path,
		}
	}

	jsonStr := extractEscapedPayload(string(content[loc[1]:]))

	var raw rawManifest
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, &FailedManifestHydrationError{
			Message:      fmt.Sprintf("failed to parse manifest payload in %s: %v", path, err),
			ManifestPath: path,
			Inner:        err,
		}
	}

	manifest, err := hydrate(&raw, path)
	if err != nil {
		return nil, &FailedManifestHydrationError{
			Message:      fmt.Sprintf("failed to hydrate manifest payload in %s: %v", path, err),
			ManifestPath: path,
			Inner:        err,
		}
	}
	return manifest, nil
}

// extractEscapedPayload consumes characters until an unescaped closing
// single quote, treating '\' as a one-character escape, per
// original_source/src/lib.rs's load_pnp_manifest loop.
func extractEscapedPayload(s string) string {
	var b strings.Builder
	escaped := false
	for _, c := range s {
		switch {
		case c == '\'' && !escaped:
			return b.String()
		case c == '\\' && !escaped:
			escaped = true
		default:
			escaped = false
			b.WriteRune(c)
		}
	}
	return b.String()
}

// stripSlashEscape removes the backslash preceding an escaped forward
// slash, since ignorePatternData arrives JSON-encoded with literal
// "\/" sequences inherited from a JavaScript regex literal. Grounded
// on original_source/src/util.rs's strip_slash_escape.
func stripSlashEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if !escaped && c == '\\' {
			if i+1 < len(runes) && runes[i+1] == '/' {
				continue
			}
			escaped = true
		} else {
			escaped = false
		}
		b.WriteRune(c)
	}
	return b.String()
}

type rawManifest struct {
	EnableTopLevelFallback bool               `json:"enableTopLevelFallback"`
	IgnorePatternData      *string            `json:"ignorePatternData"`
	DependencyTreeRoots    []rawLocator       `json:"dependencyTreeRoots"`
	FallbackPool           []json.RawMessage  `json:"fallbackPool"`
	FallbackExclusionList  []json.RawMessage  `json:"fallbackExclusionList"`
	PackageRegistryData    []json.RawMessage  `json:"packageRegistryData"`
}

type rawLocator struct {
	Name      string `json:"name"`
	Reference string `json:"reference"`
}

type rawPackageInformation struct {
	PackageLocation     string            `json:"packageLocation"`
	DiscardFromLookup   bool              `json:"discardFromLookup"`
	PackageDependencies []json.RawMessage `json:"packageDependencies"`
}

func hydrate(raw *rawManifest, path string) (*Manifest, error) {
	m := &Manifest{
		ManifestPath:           path,
		ManifestDir:            filepath.Dir(path),
		EnableTopLevelFallback: raw.EnableTopLevelFallback,
		DependencyTreeRoots:    make(map[PackageLocator]struct{}),
		FallbackPool:           make(map[string]*PackageDependency),
		FallbackExclusionList:  make(map[string]map[string]struct{}),
		PackageRegistryData:    make(map[string]*orderedmap.Map[string, *PackageInformation]),
		locationTrie:           trie.New[PackageLocator](),
	}

	if raw.IgnorePatternData != nil {
		pattern := stripSlashEscape(*raw.IgnorePatternData)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignorePatternData %q: %w", pattern, err)
		}
		m.IgnorePattern = re
	}

	for _, l := range raw.DependencyTreeRoots {
		m.DependencyTreeRoots[PackageLocator{Name: l.Name, Reference: l.Reference}] = struct{}{}
	}

	for _, item := range raw.FallbackPool {
		nameRaw, valueRaw, err := decodePair(item)
		if err != nil {
			return nil, fmt.Errorf("fallbackPool: %w", err)
		}
		name, err := decodeNullableString(nameRaw)
		if err != nil {
			return nil, fmt.Errorf("fallbackPool name: %w", err)
		}
		dep, err := decodeDependencyValue(valueRaw)
		if err != nil {
			return nil, fmt.Errorf("fallbackPool[%s]: %w", name, err)
		}
		m.FallbackPool[name] = dep
	}

	for _, item := range raw.FallbackExclusionList {
		nameRaw, refsRaw, err := decodePair(item)
		if err != nil {
			return nil, fmt.Errorf("fallbackExclusionList: %w", err)
		}
		name, err := decodeNullableString(nameRaw)
		if err != nil {
			return nil, fmt.Errorf("fallbackExclusionList name: %w", err)
		}
		var refs []string
		if err := json.Unmarshal(refsRaw, &refs); err != nil {
			return nil, fmt.Errorf("fallbackExclusionList[%s]: %w", name, err)
		}
		set := make(map[string]struct{}, len(refs))
		for _, r := range refs {
			set[r] = struct{}{}
		}
		m.FallbackExclusionList[name] = set
	}

	for _, item := range raw.PackageRegistryData {
		nameRaw, refsRaw, err := decodePair(item)
		if err != nil {
			return nil, fmt.Errorf("packageRegistryData: %w", err)
		}
		name, err := decodeNullableString(nameRaw)
		if err != nil {
			return nil, fmt.Errorf("packageRegistryData name: %w", err)
		}

		var refPairs []json.RawMessage
		if err := json.Unmarshal(refsRaw, &refPairs); err != nil {
			return nil, fmt.Errorf("packageRegistryData[%s]: %w", name, err)
		}

		refs := orderedmap.New[string, *PackageInformation]()
		for _, refItem := range refPairs {
			referenceRaw, infoRaw, err := decodePair(refItem)
			if err != nil {
				return nil, fmt.Errorf("packageRegistryData[%s] entry: %w", name, err)
			}
			reference, err := decodeNullableString(referenceRaw)
			if err != nil {
				return nil, fmt.Errorf("packageRegistryData[%s] reference: %w", name, err)
			}

			var rawInfo rawPackageInformation
			if err := json.Unmarshal(infoRaw, &rawInfo); err != nil {
				return nil, fmt.Errorf("packageRegistryData[%s][%s]: %w", name, reference, err)
			}

			deps := make(map[string]*PackageDependency, len(rawInfo.PackageDependencies))
			for _, depItem := range rawInfo.PackageDependencies {
				depNameRaw, depValueRaw, err := decodePair(depItem)
				if err != nil {
					return nil, fmt.Errorf("packageDependencies: %w", err)
				}
				depName, err := decodeNullableString(depNameRaw)
				if err != nil {
					return nil, fmt.Errorf("packageDependencies name: %w", err)
				}
				dep, err := decodeDependencyValue(depValueRaw)
				if err != nil {
					return nil, fmt.Errorf("packageDependencies[%s]: %w", depName, err)
				}
				deps[depName] = dep
			}

			location := vpath.Normalize(filepath.Join(m.ManifestDir, rawInfo.PackageLocation))
			info := &PackageInformation{
				PackageLocation:     location,
				DiscardFromLookup:   rawInfo.DiscardFromLookup,
				PackageDependencies: deps,
			}
			refs.Set(reference, info)

			if !info.DiscardFromLookup {
				m.locationTrie.Insert(location, PackageLocator{Name: name, Reference: reference})
			}
		}
		m.PackageRegistryData[name] = refs
	}

	topLevel, ok := m.Package(PackageLocator{})
	if !ok {
		return nil, fmt.Errorf("manifest is missing the top-level package entry")
	}
	for name, dep := range topLevel.PackageDependencies {
		if _, exists := m.FallbackPool[name]; !exists {
			m.FallbackPool[name] = dep
		}
	}

	return m, nil
}

func decodePair(raw json.RawMessage) (first, second json.RawMessage, err error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, nil, err
	}
	if len(pair) != 2 {
		return nil, nil, fmt.Errorf("expected a 2-element array, got %d elements", len(pair))
	}
	return pair[0], pair[1], nil
}

func decodeNullableString(raw json.RawMessage) (string, error) {
	if raw == nil || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func decodeDependencyValue(raw json.RawMessage) (*PackageDependency, error) {
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &PackageDependency{Kind: DependencyReference, Reference: s}, nil
	}
	var pair [2]string
	if err := json.Unmarshal(raw, &pair); err == nil {
		return &PackageDependency{Kind: DependencyAlias, Name: pair[0], Reference: pair[1]}, nil
	}
	return nil, fmt.Errorf("invalid dependency value %s", raw)
}

// FindClosestManifestPath walks the ancestors of dir, returning the
// first ".pnp.cjs" that exists.
func FindClosestManifestPath(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, ".pnp.cjs")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
