// Package pypi scans requirements.txt manifests for PyPI dependencies.
package pypi

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/errs"
	"github.com/rtxscan/rtx/internal/scanner"
)

func init() {
	scanner.Register("pypi", func() scanner.Scanner { return &Scanner{} }, "pip")
}

// Scanner implements scanner.Scanner for requirements.txt.
type Scanner struct{}

func (s *Scanner) Manager() string     { return "pypi" }
func (s *Scanner) Ecosystem() string   { return "pypi" }
func (s *Scanner) Manifests() []string { return []string{"requirements.txt"} }

func (s *Scanner) Matches(root string) bool {
	_, err := os.Stat(filepath.Join(root, "requirements.txt"))
	return err == nil
}

// lineRE matches "name==version", "name>=version", or a bare "name",
// ignoring extras ("name[extra]==version") and inline comments.
var lineRE = regexp.MustCompile(`^([A-Za-z0-9_.-]+)(?:\[[^\]]*\])?\s*(?:(==|>=|<=|~=|!=|>|<)\s*([A-Za-z0-9_.!+*-]+))?`)

func (s *Scanner) Scan(ctx context.Context, root string) (scanner.Result, error) {
	path := filepath.Join(root, "requirements.txt")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return scanner.Result{}, nil
		}
		return scanner.Result{}, &errs.Error{Op: "pypi.Scan", Kind: errs.ErrManifestParse, Inner: err}
	}
	defer f.Close()

	var deps []depmodel.Dependency
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		m := lineRE.FindStringSubmatch(line)
		if m == nil || m[1] == "" {
			continue
		}
		version := m[3]
		deps = append(deps, depmodel.Dependency{
			Ecosystem: "pypi",
			Name:      m[1],
			Version:   version,
			Direct:    true,
			Manifest:  path,
		})
	}
	if err := sc.Err(); err != nil {
		return scanner.Result{}, &errs.Error{Op: "pypi.Scan", Kind: errs.ErrManifestParse, Inner: err}
	}

	return scanner.Result{Dependencies: deps}, nil
}
