// Package testutil holds test helpers that enforce package boundaries: the domain
// package stays free of drivers and transports, and only the store applies
// reducer transitions.
package testutil

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoTransitiveDependency runs `go list -deps` for pattern and fails if any
// listed package satisfies forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, out, err := transitiveDependencyViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("go list failed: %v\n%s", err, string(out))
	}
	failIf(t, "forbidden transitive dependency", reason, viols)
}

// AssertNoDirectImports fails if a non-test file in dir imports a path matching forbidden.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failIf(t, "forbidden direct imports", reason, viols)
}

// AssertNoCalls fails if a non-test file in dir calls fn from the package imported
// as importPath, for example AssertNoCalls(t, ".", "booktrack/pkg/domain", "Reduce").
func AssertNoCalls(t testing.TB, dir, importPath, fn, reason string) {
	t.Helper()
	viols, err := callViolations(dir, importPath, fn)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failIf(t, "forbidden calls", reason, viols)
}

// InternalImportForbidden matches import paths inside an internal/ tree.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasSuffix(path, "/internal")
}

// driverPrefixes are storage, transport and spreadsheet modules the domain must not reach.
var driverPrefixes = []string{
	"github.com/aws/",
	"github.com/gin-gonic/",
	"github.com/go-redis/",
	"github.com/jackc/",
	"github.com/prometheus/",
	"github.com/xuri/",
	"modernc.org/",
	"net/http",
}

// DriverImportForbidden matches storage drivers, HTTP stacks and metrics clients.
// database/sql/driver stays allowed since uuid implements its Valuer.
func DriverImportForbidden(path string) bool {
	if path == "database/sql" {
		return true
	}
	for _, prefix := range driverPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

var goListDeps = func(pattern string) ([]byte, error) {
	cmd := exec.Command("go", "list", "-deps", pattern)
	return cmd.CombinedOutput()
}

func transitiveDependencyViolations(pattern string, forbidden func(path string) bool) ([]string, []byte, error) {
	out, err := goListDeps(pattern)
	if err != nil {
		return nil, out, err
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	return viols, out, nil
}

// parseSources parses every non-test .go file directly inside dir.
func parseSources(dir string) (map[string]*ast.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	files := make(map[string]*ast.File)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, 0)
		if err != nil {
			return nil, err
		}
		files[name] = f
	}
	return files, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	files, err := parseSources(dir)
	if err != nil {
		return nil, err
	}
	var viols []string
	for name, f := range files {
		for _, imp := range f.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

func callViolations(dir, importPath, fn string) ([]string, error) {
	files, err := parseSources(dir)
	if err != nil {
		return nil, err
	}
	var viols []string
	for name, f := range files {
		local := localName(f, importPath)
		if local == "" {
			continue
		}
		ast.Inspect(f, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != fn {
				return true
			}
			if id, ok := sel.X.(*ast.Ident); ok && id.Name == local {
				viols = append(viols, local+"."+fn+" (in "+name+")")
			}
			return true
		})
	}
	return viols, nil
}

// localName returns the identifier under which f refers to importPath, or "" if
// f does not import it. Dot and blank imports are not tracked.
func localName(f *ast.File, importPath string) string {
	for _, imp := range f.Imports {
		if strings.Trim(imp.Path.Value, "\"") != importPath {
			continue
		}
		if imp.Name != nil {
			if imp.Name.Name == "_" || imp.Name.Name == "." {
				return ""
			}
			return imp.Name.Name
		}
		return importPath[strings.LastIndex(importPath, "/")+1:]
	}
	return ""
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIf(t fatalLogger, kind, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s detected (%s):\n%s", kind, reason, strings.Join(viols, "\n"))
	}
}
