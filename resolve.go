package pnp

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ResolutionKind discriminates the two shapes a successful Resolution
// can take.
type ResolutionKind int

const (
	// Resolved means the specifier was resolved to a package location.
	Resolved ResolutionKind = iota
	// Skipped means no PnP manifest governs the issuer; the caller
	// should fall back to its own resolution strategy.
	Skipped
)

// Resolution is the outcome of resolving a bare specifier against an
// issuer path.
type Resolution struct {
	Kind ResolutionKind

	// PackageLocation and ModuleSubpath are set when Kind == Resolved.
	PackageLocation string
	ModuleSubpath   string
	HasSubpath      bool
}

// ManifestFinder locates the PnP manifest, if any, that governs the
// given issuer path. The default implementation
// (internal/manifestcache) walks ancestors for a .pnp.cjs file and
// loads it; callers may substitute their own for caching or
// alternative discovery, per spec.md §6's host-hookable design.
type ManifestFinder interface {
	FindPnPManifest(ctx context.Context, issuerPath string) (*Manifest, error)
}

// ManifestFinderFunc adapts a plain function to ManifestFinder.
type ManifestFinderFunc func(ctx context.Context, issuerPath string) (*Manifest, error)

func (f ManifestFinderFunc) FindPnPManifest(ctx context.Context, issuerPath string) (*Manifest, error) {
	return f(ctx, issuerPath)
}

// ResolutionConfig configures resolve_to_unqualified. Host is the
// extensibility seam named in spec.md §9 ("dynamic dispatch on the
// host hook is a deliberate extensibility seam").
type ResolutionConfig struct {
	Host ManifestFinder
}

var tracer = otel.Tracer("github.com/yarnpkg/pnp-go")

// ParseBareIdentifier splits specifier into a package name and
// optional module subpath, per spec.md §4.7 step 2.
func ParseBareIdentifier(specifier string) (name string, subpath string, hasSubpath bool, err error) {
	if specifier == "" {
		return "", "", false, badSpecifier(specifier)
	}

	if strings.HasPrefix(specifier, "@") {
		idx := strings.Index(specifier, "/")
		if idx < 0 {
			return "", "", false, badSpecifier(specifier)
		}
		rest := specifier[idx+1:]
		idx2 := strings.Index(rest, "/")
		if idx2 < 0 {
			return specifier, "", false, nil
		}
		name = specifier[:idx+1+idx2]
		return name, rest[idx2+1:], true, nil
	}

	idx := strings.Index(specifier, "/")
	if idx < 0 {
		return specifier, "", false, nil
	}
	return specifier[:idx], specifier[idx+1:], true, nil
}

// ResolveToUnqualified is the public entry point: it resolves
// specifier, requested from parent, to either a package location or a
// Skipped result, per spec.md §4.7.
func ResolveToUnqualified(ctx context.Context, specifier, parent string, config *ResolutionConfig) (Resolution, error) {
	ctx, span := tracer.Start(ctx, "pnp.ResolveToUnqualified",
		trace.WithAttributes(attribute.String("specifier", specifier), attribute.String("parent", parent)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	manifest, err := config.Host.FindPnPManifest(ctx, parent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Resolution{}, err
	}
	if manifest == nil {
		return Resolution{Kind: Skipped}, nil
	}

	res, err := resolveViaManifest(manifest, specifier, parent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func resolveViaManifest(manifest *Manifest, specifier, parent string) (Resolution, error) {
	name, subpath, hasSubpath, err := ParseBareIdentifier(specifier)
	if err != nil {
		return Resolution{}, err
	}

	issuerLocator, ok := manifest.FindLocator(parent)
	if !ok {
		return Resolution{Kind: Skipped}, nil
	}

	issuerPkg, ok := manifest.Package(issuerLocator)
	if !ok {
		return Resolution{}, &MissingDependencyError{
			Message:        fmt.Sprintf("manifest is missing a package registry entry for %s@%s", issuerLocator.Name, issuerLocator.Reference),
			Request:        specifier,
			DependencyName: name,
			IssuerLocator:  issuerLocator,
			IssuerPath:     parent,
		}
	}

	dep, declared := issuerPkg.PackageDependencies[name]

	if !declared {
		if manifest.EnableTopLevelFallback && !manifest.IsExcludedFromFallback(issuerLocator) {
			if fallbackDep, ok := manifest.FallbackPool[name]; ok {
				dep = fallbackDep
				declared = true
			}
		}
	}

	if !declared {
		isRoot := manifest.IsDependencyTreeRoot(issuerLocator)
		return Resolution{}, undeclaredDependency(specifier, name, issuerLocator, parent, isRoot)
	}

	if dep == nil {
		isRoot := manifest.IsDependencyTreeRoot(issuerLocator)
		return Resolution{}, missingPeerDependency(specifier, name, issuerLocator, parent, isRoot, nil)
	}

	targetLocator := dep.Locator(name)
	targetPkg, ok := manifest.Package(targetLocator)
	if !ok {
		return Resolution{}, &MissingDependencyError{
			Message:           fmt.Sprintf("%s@%s depends on %s@%s, but it has no entry in the package registry", issuerLocator.Name, issuerLocator.Reference, targetLocator.Name, targetLocator.Reference),
			Request:           specifier,
			DependencyLocator: targetLocator,
			DependencyName:    name,
			IssuerLocator:     issuerLocator,
			IssuerPath:        parent,
		}
	}

	return Resolution{
		Kind:            Resolved,
		PackageLocation: targetPkg.PackageLocation,
		ModuleSubpath:   subpath,
		HasSubpath:      hasSubpath,
	}, nil
}
