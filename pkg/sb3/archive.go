package sb3

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/scratch"
)

// ManifestFileName is the name of the manifest entry inside a bundle.
const ManifestFileName = "project.json"

// Writer assembles an sb3 bundle. The manifest must be added exactly
// once; assets may be added in any order.
type Writer struct {
	zw          *zip.Writer
	hasManifest bool
	assets      map[string]struct{}
}

// NewWriter creates a bundle writer on top of w. Close must be called
// to flush the zip central directory.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		zw:     zip.NewWriter(w),
		assets: make(map[string]struct{}),
	}
}

// AddManifest writes the project.json entry.
func (w *Writer) AddManifest(data []byte) error {
	if w.hasManifest {
		return fmt.Errorf("bundle already has a manifest")
	}
	if err := w.writeEntry(ManifestFileName, data); err != nil {
		return err
	}
	w.hasManifest = true
	return nil
}

// AddAsset writes one asset entry. Duplicate names are ignored so a
// costume shared between sprites is stored once.
func (w *Writer) AddAsset(name string, data []byte) error {
	if !scratch.IsValidAssetName(name) {
		return fmt.Errorf("invalid asset name %q", name)
	}
	if _, ok := w.assets[name]; ok {
		return nil
	}
	if err := w.writeEntry(name, data); err != nil {
		return err
	}
	w.assets[name] = struct{}{}
	return nil
}

func (w *Writer) writeEntry(name string, data []byte) error {
	f, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("creating zip entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing zip entry %s: %w", name, err)
	}
	return nil
}

// Close finishes the bundle. It fails if no manifest was added.
func (w *Writer) Close() error {
	if !w.hasManifest {
		w.zw.Close()
		return fmt.Errorf("bundle has no manifest")
	}
	return w.zw.Close()
}

// WriteBundle writes a complete bundle from a manifest and a map of
// asset name to contents. Asset entries are written in sorted order so
// output is reproducible.
func WriteBundle(w io.Writer, manifest []byte, assets map[string][]byte) error {
	bw := NewWriter(w)
	if err := bw.AddManifest(manifest); err != nil {
		return err
	}

	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := bw.AddAsset(name, assets[name]); err != nil {
			return err
		}
	}
	return bw.Close()
}
