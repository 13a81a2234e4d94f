// Command pnpresolve resolves a bare specifier against an issuer path
// using the nearest .pnp.cjs manifest, printing the resulting package
// location or the error the library would hand a bundler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	pnp "github.com/yarnpkg/pnp-go"
	"github.com/yarnpkg/pnp-go/internal/manifestcache"
)

func main() {
	var exit int
	defer func() {
		if exit != 0 {
			os.Exit(exit)
		}
	}()

	ctx, done := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		<-ch
		done()
	}()

	fs := flag.NewFlagSet("pnpresolve", flag.ExitOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [flags] <specifier> <issuer>\n", os.Args[0])
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	if fs.NArg() != 2 {
		fs.Usage()
		os.Exit(99)
	}

	specifier := fs.Arg(0)
	issuer := fs.Arg(1)
	if !filepath.IsAbs(issuer) {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatal(err)
		}
		issuer = filepath.Join(wd, issuer)
	}

	cfg := &pnp.ResolutionConfig{Host: manifestcache.New()}

	res, err := pnp.ResolveToUnqualified(ctx, specifier, issuer, cfg)
	if err != nil {
		printResolutionError(err)
		exit = 1
		return
	}

	switch res.Kind {
	case pnp.Skipped:
		fmt.Println("skipped: no manifest governs this issuer")
	case pnp.Resolved:
		fmt.Printf("packageLocation: %s\n", res.PackageLocation)
		if res.HasSubpath {
			fmt.Printf("moduleSubpath: %s\n", res.ModuleSubpath)
		}
	}
}

func printResolutionError(err error) {
	var bad *pnp.BadSpecifierError
	var undeclared *pnp.UndeclaredDependencyError
	var peer *pnp.MissingPeerDependencyError
	var missing *pnp.MissingDependencyError
	var hydration *pnp.FailedManifestHydrationError

	switch {
	case errors.As(err, &bad):
		fmt.Fprintf(os.Stderr, "bad specifier %q: %s\n", bad.Specifier, bad.Message)
	case errors.As(err, &undeclared):
		fmt.Fprintf(os.Stderr, "undeclared dependency: %s\n", undeclared.Message)
	case errors.As(err, &peer):
		fmt.Fprintf(os.Stderr, "missing peer dependency: %s\n", peer.Message)
	case errors.As(err, &missing):
		fmt.Fprintf(os.Stderr, "missing dependency: %s\n", missing.Message)
	case errors.As(err, &hydration):
		fmt.Fprintf(os.Stderr, "manifest hydration failed: %s\n", hydration.Message)
	default:
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
}
