// Package sbom builds a CycloneDX 1.5 Software Bill of Materials from a
// Report, with component and vulnerability deduplication.
package sbom

import (
	"strings"

	"github.com/package-url/packageurl-go"
)

// purlType maps rtx's ecosystem tags to CycloneDX/PURL package types.
var purlType = map[string]string{
	"pypi":      "pypi",
	"npm":       "npm",
	"maven":     "maven",
	"crates":    "cargo",
	"go":        "golang",
	"packagist": "composer",
	"nuget":     "nuget",
	"rubygems":  "gem",
	"homebrew":  "generic",
	"conda":     "conda",
	"docker":    "docker",
}

// buildPURL builds a package URL for one (ecosystem, name, version)
// triple using packageurl-go, splitting maven coordinates into
// group/artifact namespace+name.
func buildPURL(ecosystem, name, version string) string {
	t, ok := purlType[strings.ToLower(ecosystem)]
	if !ok {
		t = strings.ToLower(ecosystem)
	}

	namespace := ""
	pkgName := name
	if t == "maven" {
		if idx := strings.Index(name, ":"); idx >= 0 {
			namespace = name[:idx]
			pkgName = name[idx+1:]
		}
	}

	instance := packageurl.NewPackageURL(t, namespace, pkgName, version, nil, "")
	return instance.ToString()
}
