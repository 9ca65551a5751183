package harlens_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// The analysis core must stay host-agnostic: no third-party imports and no
// dependency edges toward the harness packages (api, analyzer, capture,
// cdp, archive, config, netutil, notify).
var corePackages = []string{
	"internal/harlog",
	"internal/query",
	"internal/stats",
	"internal/livetrack",
}

func TestCorePackagesHaveNoHostDependencies(t *testing.T) {
	allowed := make(map[string]bool, len(corePackages))
	for _, pkg := range corePackages {
		allowed["github.com/trailstash/harlens/"+pkg] = true
	}

	for _, pkg := range corePackages {
		fset := token.NewFileSet()
		pkgs, err := parser.ParseDir(fset, pkg, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parser.ParseDir(%q) error = %v", pkg, err)
		}
		for _, p := range pkgs {
			for filename, file := range p.Files {
				for _, imp := range file.Imports {
					path, err := strconv.Unquote(imp.Path.Value)
					if err != nil {
						t.Fatalf("unquote import in %s: %v", filename, err)
					}
					if allowed[path] {
						continue
					}
					if strings.Contains(strings.SplitN(path, "/", 2)[0], ".") {
						t.Fatalf("%s imports non-stdlib package %q", filepath.Base(filename), path)
					}
				}
			}
		}
	}
}
