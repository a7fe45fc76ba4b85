package sbom

import (
	"io"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

// Encode writes bom to w as pretty-printed CycloneDX JSON.
func Encode(w io.Writer, bom *cdx.BOM) error {
	enc := cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON)
	enc.SetPretty(true)
	return enc.Encode(bom)
}
