// Package gomod scans go.mod require blocks for Go module dependencies.
// It uses a small hand-rolled line scanner rather than
// golang.org/x/mod/modfile (see DESIGN.md).
package gomod

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/errs"
	"github.com/rtxscan/rtx/internal/scanner"
)

func init() {
	scanner.Register("gomod", func() scanner.Scanner { return &Scanner{} }, "go", "golang")
}

// Scanner implements scanner.Scanner for go.mod.
type Scanner struct{}

func (s *Scanner) Manager() string     { return "gomod" }
func (s *Scanner) Ecosystem() string   { return "go" }
func (s *Scanner) Manifests() []string { return []string{"go.mod"} }

func (s *Scanner) Matches(root string) bool {
	_, err := os.Stat(filepath.Join(root, "go.mod"))
	return err == nil
}

func (s *Scanner) Scan(ctx context.Context, root string) (scanner.Result, error) {
	path := filepath.Join(root, "go.mod")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return scanner.Result{}, nil
		}
		return scanner.Result{}, &errs.Error{Op: "gomod.Scan", Kind: errs.ErrManifestParse, Inner: err}
	}
	defer f.Close()

	var deps []depmodel.Dependency
	inBlock := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "require ("):
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		case inBlock:
			if dep, ok := parseRequireLine(line); ok {
				dep.Manifest = path
				deps = append(deps, dep)
			}
		case strings.HasPrefix(line, "require "):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "require "))
			if dep, ok := parseRequireLine(rest); ok {
				dep.Manifest = path
				deps = append(deps, dep)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return scanner.Result{}, &errs.Error{Op: "gomod.Scan", Kind: errs.ErrManifestParse, Inner: err}
	}

	return scanner.Result{Dependencies: deps}, nil
}

// parseRequireLine parses "module/path v1.2.3" and "module/path v1.2.3
// // indirect" lines.
func parseRequireLine(line string) (depmodel.Dependency, bool) {
	if idx := strings.Index(line, "//"); idx >= 0 {
		comment := strings.TrimSpace(line[idx+2:])
		line = strings.TrimSpace(line[:idx])
		direct := comment != "indirect"
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return depmodel.Dependency{}, false
		}
		return depmodel.Dependency{Ecosystem: "go", Name: fields[0], Version: fields[1], Direct: direct}, true
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return depmodel.Dependency{}, false
	}
	return depmodel.Dependency{Ecosystem: "go", Name: fields[0], Version: fields[1], Direct: true}, true
}
