// Package npm scans package.json manifests for npm dependencies.
package npm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/errs"
	"github.com/rtxscan/rtx/internal/scanner"
)

func init() {
	scanner.Register("npm", func() scanner.Scanner { return &Scanner{} }, "node")
}

// Scanner implements scanner.Scanner for npm's package.json.
type Scanner struct{}

func (s *Scanner) Manager() string      { return "npm" }
func (s *Scanner) Ecosystem() string    { return "npm" }
func (s *Scanner) Manifests() []string  { return []string{"package.json"} }

func (s *Scanner) Matches(root string) bool {
	_, err := os.Stat(filepath.Join(root, "package.json"))
	return err == nil
}

type manifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Scan parses package.json dependencies and devDependencies as direct
// npm dependencies.
func (s *Scanner) Scan(ctx context.Context, root string) (scanner.Result, error) {
	path := filepath.Join(root, "package.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return scanner.Result{}, nil
		}
		return scanner.Result{}, &errs.Error{Op: "npm.Scan", Kind: errs.ErrManifestParse, Inner: err}
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return scanner.Result{}, &errs.Error{Op: "npm.Scan", Kind: errs.ErrManifestParse, Inner: err}
	}

	var deps []depmodel.Dependency
	addAll := func(section map[string]string, scope string) {
		names := make([]string, 0, len(section))
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			deps = append(deps, depmodel.Dependency{
				Ecosystem: "npm",
				Name:      name,
				Version:   section[name],
				Direct:    true,
				Manifest:  path,
				Metadata:  map[string]any{"scope": scope},
			})
		}
	}
	addAll(m.Dependencies, "runtime")
	addAll(m.DevDependencies, "dev")

	return scanner.Result{Dependencies: deps}, nil
}
