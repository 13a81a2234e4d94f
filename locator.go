package pnp

// PackageLocator identifies a specific installed package by name and
// reference. The empty value for both fields denotes the top-level
// (workspace root) package.
type PackageLocator struct {
	Name      string
	Reference string
}

// PackageDependencyKind discriminates the two shapes a declared
// dependency can take.
type PackageDependencyKind int

const (
	// DependencyReference depends on (name requested, Reference).
	DependencyReference PackageDependencyKind = iota
	// DependencyAlias depends on (Name, Reference), i.e. a rename.
	DependencyAlias
)

// PackageDependency is either a bare reference (resolve under the
// requested name) or an alias (resolve under a different name).
type PackageDependency struct {
	Kind      PackageDependencyKind
	Name      string // set only for DependencyAlias
	Reference string
}

// Locator resolves the dependency to a concrete locator, given the
// name under which it was requested.
func (d PackageDependency) Locator(requestedName string) PackageLocator {
	if d.Kind == DependencyAlias {
		return PackageLocator{Name: d.Name, Reference: d.Reference}
	}
	return PackageLocator{Name: requestedName, Reference: d.Reference}
}

// PackageInformation describes one installed package: where it lives
// on disk and what it depends on.
type PackageInformation struct {
	PackageLocation   string
	DiscardFromLookup bool

	// PackageDependencies maps a dependency name to its resolved
	// target. A present key with a nil value means the dependency is
	// declared but unresolved (a missing peer dependency); an absent
	// key means undeclared.
	PackageDependencies map[string]*PackageDependency
}
