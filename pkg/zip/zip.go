// Package zip builds the downloadable bundle of a generated post: the media
// file plus its marketing copy.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Asset is one file inside a bundle.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// BundleName returns the download filename for an artifact bundle.
func BundleName(artifactID string) string {
	return fmt.Sprintf("adstudio_%s.zip", artifactID)
}

// ArchiveAssets packs the assets into an in-memory zip archive. A write
// failure returns nil.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		w, err := zw.Create(asset.Filename)
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
