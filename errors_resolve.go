package pnp

import "fmt"

// BadSpecifierError is returned when a specifier string cannot be
// parsed into a package name and optional subpath.
type BadSpecifierError struct {
	Message   string
	Specifier string
}

func (e *BadSpecifierError) Error() string { return e.Message }

// FailedManifestHydrationError is returned when a PnP manifest file
// cannot be read, located, or parsed.
type FailedManifestHydrationError struct {
	Message      string
	ManifestPath string
	Inner        error
}

func (e *FailedManifestHydrationError) Error() string { return e.Message }
func (e *FailedManifestHydrationError) Unwrap() error  { return e.Inner }

// UndeclaredDependencyError is returned when a specifier names a
// package the issuer has not declared as a dependency, and no
// top-level fallback applies.
type UndeclaredDependencyError struct {
	Message        string
	Request        string
	DependencyName string
	IssuerLocator  PackageLocator
	IssuerPath     string
}

func (e *UndeclaredDependencyError) Error() string { return e.Message }

// MissingPeerDependencyError is returned when a dependency is declared
// but its value is unresolved (a peer dependency the issuer's
// ancestors never satisfied).
type MissingPeerDependencyError struct {
	Message         string
	Request         string
	DependencyName  string
	IssuerLocator   PackageLocator
	IssuerPath      string
	BrokenAncestors []PackageLocator
}

func (e *MissingPeerDependencyError) Error() string { return e.Message }

// MissingDependencyError is returned when a resolved locator does not
// correspond to any entry in the package registry. This indicates a
// malformed or inconsistent manifest rather than a bad specifier.
type MissingDependencyError struct {
	Message           string
	Request           string
	DependencyLocator PackageLocator
	DependencyName    string
	IssuerLocator     PackageLocator
	IssuerPath        string
}

func (e *MissingDependencyError) Error() string { return e.Message }

func badSpecifier(specifier string) error {
	return &BadSpecifierError{
		Message:   fmt.Sprintf("%q is not a valid package specifier", specifier),
		Specifier: specifier,
	}
}

func undeclaredDependency(request, dependencyName string, issuer PackageLocator, issuerPath string, isRoot bool) error {
	var msg string
	switch {
	case isNodeBuiltin(dependencyName):
		msg = fmt.Sprintf("%s tried to access %s, a Node built-in module, but it isn't declared in its dependencies; this could disable some node polyfills", issuerDescription(issuer, isRoot), dependencyName)
	default:
		msg = fmt.Sprintf("%s tried to access %s, but it isn't declared in its dependencies; this makes the require call ambiguous and unsound", issuerDescription(issuer, isRoot), dependencyName)
	}
	return &UndeclaredDependencyError{
		Message:        msg,
		Request:        request,
		DependencyName: dependencyName,
		IssuerLocator:  issuer,
		IssuerPath:     issuerPath,
	}
}

func missingPeerDependency(request, dependencyName string, issuer PackageLocator, issuerPath string, isRoot bool, broken []PackageLocator) error {
	return &MissingPeerDependencyError{
		Message:         fmt.Sprintf("%s tried to access %s, but it is a peer dependency that isn't provided by any parent package", issuerDescription(issuer, isRoot), dependencyName),
		Request:         request,
		DependencyName:  dependencyName,
		IssuerLocator:   issuer,
		IssuerPath:      issuerPath,
		BrokenAncestors: broken,
	}
}

func issuerDescription(locator PackageLocator, isRoot bool) string {
	if isRoot {
		return "The project root"
	}
	return fmt.Sprintf("%s@%s", locator.Name, locator.Reference)
}
