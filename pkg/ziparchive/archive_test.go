package ziparchive_test

import (
	"archive/zip"
	"bytes"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yarnpkg/pnp-go/pkg/ziparchive"
)

// buildFixture uses the standard library's zip writer purely to
// produce test bytes; production reads never go through archive/zip.
func buildFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	write := func(name string, method uint16, contents string) {
		t.Helper()
		hdr := &zip.FileHeader{Name: name, Method: method}
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("CreateHeader(%q): %v", name, err)
		}
		if _, err := fw.Write([]byte(contents)); err != nil {
			t.Fatalf("Write(%q): %v", name, err)
		}
	}

	write("node_modules/@babel/plugin-syntax-dynamic-import/package.json", zip.Store,
		`{"name":"@babel/plugin-syntax-dynamic-import","version":"7.8.3"}`)
	write("node_modules/@babel/plugin-syntax-dynamic-import/lib/index.js", zip.Deflate,
		"module.exports = function () {};\n")
	write("node_modules/@babel/plugin-syntax-dynamic-import/README.md", zip.Deflate,
		"# plugin\n")

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func openFixture(t *testing.T) *ziparchive.Zip {
	t.Helper()
	z, err := ziparchive.Open(ziparchive.Bytes(buildFixture(t)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return z
}

func TestFileTypeDirectory(t *testing.T) {
	z := openFixture(t)

	for _, name := range []string{"node_modules", "node_modules/"} {
		ft, err := z.FileType(name)
		if err != nil {
			t.Fatalf("FileType(%q): %v", name, err)
		}
		if ft != ziparchive.Directory {
			t.Errorf("FileType(%q) = %v; want Directory", name, ft)
		}
	}
}

func TestFileTypeNotFound(t *testing.T) {
	z := openFixture(t)
	for _, name := range []string{"not_exists", "not_exists/"} {
		if _, err := z.FileType(name); err != ziparchive.ErrNotFound {
			t.Errorf("FileType(%q) error = %v; want ErrNotFound", name, err)
		}
	}
}

func TestFileTypeFile(t *testing.T) {
	z := openFixture(t)
	ft, err := z.FileType("node_modules/@babel/plugin-syntax-dynamic-import/README.md")
	if err != nil {
		t.Fatalf("FileType: %v", err)
	}
	if ft != ziparchive.File {
		t.Errorf("FileType = %v; want File", ft)
	}
}

func TestReadStoreAndDeflate(t *testing.T) {
	z := openFixture(t)

	got, err := z.ReadToString("node_modules/@babel/plugin-syntax-dynamic-import/package.json")
	if err != nil {
		t.Fatalf("ReadToString (store): %v", err)
	}
	want := `{"name":"@babel/plugin-syntax-dynamic-import","version":"7.8.3"}`
	if got != want {
		t.Errorf("ReadToString (store) = %q; want %q", got, want)
	}

	got, err = z.ReadToString("node_modules/@babel/plugin-syntax-dynamic-import/lib/index.js")
	if err != nil {
		t.Fatalf("ReadToString (deflate): %v", err)
	}
	want = "module.exports = function () {};\n"
	if got != want {
		t.Errorf("ReadToString (deflate) = %q; want %q", got, want)
	}
}

func TestReadNotFound(t *testing.T) {
	z := openFixture(t)
	if _, err := z.Read("missing"); err != ziparchive.ErrNotFound {
		t.Errorf("Read error = %v; want ErrNotFound", err)
	}
}

func TestDirectoriesDerivedFromFilePrefixes(t *testing.T) {
	z := openFixture(t)

	for _, name := range []string{
		"node_modules",
		"node_modules/@babel",
		"node_modules/@babel/plugin-syntax-dynamic-import",
		"node_modules/@babel/plugin-syntax-dynamic-import/lib",
	} {
		ft, err := z.FileType(name)
		if err != nil {
			t.Fatalf("FileType(%q): %v", name, err)
		}
		if ft != ziparchive.Directory {
			t.Errorf("FileType(%q) = %v; want Directory", name, ft)
		}
	}
}

func TestReadThenFileTypeConsistent(t *testing.T) {
	z := openFixture(t)
	names := []string{
		"node_modules/@babel/plugin-syntax-dynamic-import/package.json",
		"node_modules/@babel/plugin-syntax-dynamic-import/lib/index.js",
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := z.Read(n); err != nil {
			t.Fatalf("Read(%q): %v", n, err)
		}
		ft, err := z.FileType(n)
		if err != nil {
			t.Fatalf("FileType(%q): %v", n, err)
		}
		if diff := cmp.Diff(ziparchive.File, ft); diff != "" {
			t.Errorf("FileType(%q) mismatch (-want +got):\n%s", n, diff)
		}
	}
}
