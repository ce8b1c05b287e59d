package simulate

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"text/template"
)

var errUnknownKind = errors.New("unknown operation")

//go:embed templates/*.tmpl
var templateFS embed.FS

//nolint:gochecknoglobals // parsed once
var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// treeFile maps a template to its location in the decompiled tree. The
// destination may contain template actions of its own.
type treeFile struct {
	template string
	dest     string
}

//nolint:gochecknoglobals // Read-only layout
var treeFiles = []treeFile{
	{template: "AndroidManifest.xml.tmpl", dest: "AndroidManifest.xml"},
	{template: "apktool.yml.tmpl", dest: "apktool.yml"},
	{template: "strings.xml.tmpl", dest: "res/values/strings.xml"},
	{template: "colors.xml.tmpl", dest: "res/values/colors.xml"},
	{template: "activity_main.xml.tmpl", dest: "res/layout/activity_main.xml"},
	{template: "MainActivity.smali.tmpl", dest: "smali/{{.PackagePath}}/MainActivity.smali"},
}

//nolint:gochecknoglobals // Read-only layout
var treeDirs = []string{
	"res/drawable-mdpi",
	"res/drawable-hdpi",
	"res/drawable-xhdpi",
	"res/drawable-xxhdpi",
	"res/drawable-xxxhdpi",
	"res/xml",
	"assets",
	"original/META-INF",
}

// render executes the named template.
func render(name string, data treeData) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// renderPath expands template actions in a slash-separated destination.
func renderPath(dest string, data treeData) (string, error) {
	t, err := template.New(path.Base(dest)).Parse(dest)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeTree writes the decompiled layout under root. It keeps going after a
// failure so as much of the tree as possible exists, and returns every error.
func writeTree(root string, data treeData) error {
	var errs []error

	for _, dir := range treeDirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o750); err != nil {
			errs = append(errs, err)
		}
	}

	for _, f := range treeFiles {
		dest, err := renderPath(f.dest, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		content, err := render(f.template, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		full := filepath.Join(root, filepath.FromSlash(dest))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.WriteFile(full, content, 0o600); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
