package inspect

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
)

// Entries every installable package and every signed package must contain.
const (
	ManifestEntry = "AndroidManifest.xml"
)

//nolint:gochecknoglobals // Read-only list
var signatureEntries = []string{"META-INF/MANIFEST.MF", "META-INF/CERT.SF", "META-INF/CERT.RSA"}

// PackageCheck reports the structure of a built package.
type PackageCheck struct {
	Path        string   `json:"path"`
	Exists      bool     `json:"exists"`
	Bytes       int64    `json:"bytes"`
	Entries     int      `json:"entries"`
	HasManifest bool     `json:"has_manifest"`
	HasDex      bool     `json:"has_dex"`
	Signed      bool     `json:"signed"`
	Missing     []string `json:"missing,omitempty"`
}

// Size returns the package size in human form.
func (c *PackageCheck) Size() string {
	if c == nil || c.Bytes <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(c.Bytes))
}

// Valid reports whether the package has a manifest.
func (c *PackageCheck) Valid() bool {
	return c != nil && c.Exists && c.HasManifest
}

// CheckPackage opens the zip at path and reports which required entries are
// present. A missing file returns Exists=false and no error; a file that is
// not a zip returns an error.
func CheckPackage(path string) (*PackageCheck, error) {
	c := &PackageCheck{Path: path}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	c.Exists = true
	c.Bytes = info.Size()

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	names := make(map[string]struct{}, len(r.File))
	for _, f := range r.File {
		names[f.Name] = struct{}{}
		if strings.HasSuffix(f.Name, ".dex") {
			c.HasDex = true
		}
	}
	c.Entries = len(r.File)

	_, c.HasManifest = names[ManifestEntry]
	if !c.HasManifest {
		c.Missing = append(c.Missing, ManifestEntry)
	}

	c.Signed = true
	for _, entry := range signatureEntries {
		if _, ok := names[entry]; !ok {
			c.Signed = false
			c.Missing = append(c.Missing, entry)
		}
	}
	return c, nil
}
