// Package inspect summarizes project outputs for display: what a decompile
// produced and whether a built package has the expected structure.
package inspect

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Summary describes a working directory tree.
type Summary struct {
	Root    string `json:"root"`
	Exists  bool   `json:"exists"`
	Files   int    `json:"files"`
	Dirs    int    `json:"dirs"`
	Bytes   int64  `json:"bytes"`
	Images  int    `json:"images"`
	Layouts int    `json:"layouts"`
	Values  int    `json:"values"`
	Smali   int    `json:"smali"`
	Digest  string `json:"digest,omitempty"`
}

// Size returns the total size in human form, e.g. "1.2 MB".
func (s *Summary) Size() string {
	if s == nil || s.Bytes <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(s.Bytes))
}

//nolint:gochecknoglobals // Read-only lookup
var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".gif":  {},
}

// Summarize walks root and counts files by resource kind. A missing root is
// not an error; the summary reports Exists=false.
//
// Digest is a sha256 over every file's slash-separated relative path and
// contents in lexical order, so identical trees always hash the same.
func Summarize(root string) (*Summary, error) {
	s := &Summary{Root: root}

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "summarize", Path: root, Err: errors.New("not a directory")} //nolint:err113 // one-off path error
	}
	s.Exists = true

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			s.Dirs++
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		files = append(files, rel)

		fi, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		s.Files++
		s.Bytes += fi.Size()
		classify(s, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	digest, err := treeDigest(root, files)
	if err != nil {
		return nil, err
	}
	s.Digest = digest
	return s, nil
}

func classify(s *Summary, rel string) {
	ext := strings.ToLower(filepath.Ext(rel))
	switch {
	case strings.HasPrefix(rel, "res/drawable") || strings.HasPrefix(rel, "res/mipmap"):
		if _, ok := imageExtensions[ext]; ok {
			s.Images++
		}
	case strings.HasPrefix(rel, "res/layout"):
		s.Layouts++
	case strings.HasPrefix(rel, "res/values"):
		s.Values++
	case ext == ".smali":
		s.Smali++
	}
}

func treeDigest(root string, files []string) (string, error) {
	sort.Strings(files)
	h := sha256.New()
	for _, rel := range files {
		_, _ = io.WriteString(h, rel)
		_, _ = h.Write([]byte{0})

		f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel))) //nolint:gosec // path from WalkDir
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", err
		}
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
