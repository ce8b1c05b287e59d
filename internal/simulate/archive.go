package simulate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Placeholder payloads. The dex header magic keeps file-type sniffers happy.
//
//nolint:gochecknoglobals // constant payloads
var (
	placeholderDex  = []byte("dex\n035\x00simulated")
	placeholderArsc = []byte("\x02\x00\x0c\x00simulated")
)

type zipEntry struct {
	name string
	body []byte
}

func compiledEntries(data treeData) ([]zipEntry, error) {
	manifest, err := render("AndroidManifest.xml.tmpl", data)
	if err != nil {
		return nil, err
	}
	return []zipEntry{
		{name: "AndroidManifest.xml", body: manifest},
		{name: "classes.dex", body: placeholderDex},
		{name: "resources.arsc", body: placeholderArsc},
	}, nil
}

func signatureEntries(data treeData) []zipEntry {
	return []zipEntry{
		{name: "META-INF/MANIFEST.MF", body: []byte("Manifest-Version: 1.0\r\nCreated-By: apkfix (simulated)\r\n\r\n")},
		{name: "META-INF/CERT.SF", body: []byte("Signature-Version: 1.0\r\nX-Simulated-Package: " + data.Package + "\r\n\r\n")},
		{name: "META-INF/CERT.RSA", body: []byte("simulated certificate " + data.ID8 + "\n")},
	}
}

// writeCompiled writes the placeholder package produced by compile.
func writeCompiled(dest string, data treeData) error {
	entries, err := compiledEntries(data)
	if err != nil {
		return err
	}
	return writeZip(dest, func(w *zip.Writer) error {
		return addEntries(w, entries)
	})
}

// writeSigned copies the compiled package to dest and appends placeholder
// signature entries. Without a readable compiled package it writes a
// minimal signed placeholder instead.
func writeSigned(compiled, dest string, data treeData) error {
	r, openErr := zip.OpenReader(compiled)
	if openErr == nil {
		defer func() { _ = r.Close() }()
	}

	err := writeZip(dest, func(w *zip.Writer) error {
		if openErr != nil {
			entries, err := compiledEntries(data)
			if err != nil {
				return err
			}
			if err := addEntries(w, entries); err != nil {
				return err
			}
		} else {
			for _, f := range r.File {
				if strings.HasPrefix(f.Name, "META-INF/") {
					continue
				}
				if err := copyEntry(w, f); err != nil {
					return err
				}
			}
		}
		return addEntries(w, signatureEntries(data))
	})
	if err != nil {
		return err
	}
	if openErr != nil && !errors.Is(openErr, os.ErrNotExist) {
		return fmt.Errorf("compiled package unreadable, wrote placeholder: %w", openErr)
	}
	return nil
}

func writeZip(dest string, fill func(*zip.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	f, err := os.Create(dest) //nolint:gosec // dest is inside the project work tree
	if err != nil {
		return err
	}
	w := zip.NewWriter(f)
	if err := fill(w); err != nil {
		_ = w.Close()
		_ = f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func addEntries(w *zip.Writer, entries []zipEntry) error {
	for _, e := range entries {
		out, err := w.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: fixedModTime,
		})
		if err != nil {
			return err
		}
		if _, err := out.Write(e.body); err != nil {
			return err
		}
	}
	return nil
}

func copyEntry(w *zip.Writer, f *zip.File) error {
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := w.CreateHeader(&zip.FileHeader{
		Name:     f.Name,
		Method:   f.Method,
		Modified: fixedModTime,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in) //nolint:gosec // entries are our own placeholders or a locally built package
	return err
}
