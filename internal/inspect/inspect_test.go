package inspect_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/inspect"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
}

func TestSummarize_CountsByKind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "AndroidManifest.xml", "<manifest/>")
	writeFile(t, root, "res/drawable-hdpi/icon.png", "png")
	writeFile(t, root, "res/mipmap-xhdpi/ic_launcher.webp", "webp")
	writeFile(t, root, "res/drawable/shape.xml", "<shape/>")
	writeFile(t, root, "res/layout/activity_main.xml", "<LinearLayout/>")
	writeFile(t, root, "res/values/strings.xml", "<resources/>")
	writeFile(t, root, "smali/com/example/Main.smali", ".class")

	s, err := inspect.Summarize(root)

	require.NoError(t, err)
	assert.True(t, s.Exists)
	assert.Equal(t, 7, s.Files)
	assert.Equal(t, 2, s.Images)
	assert.Equal(t, 1, s.Layouts)
	assert.Equal(t, 1, s.Values)
	assert.Equal(t, 1, s.Smali)
	assert.Positive(t, s.Bytes)
	assert.Len(t, s.Digest, 64)
}

func TestSummarize_DigestTracksContent(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, a, "res/values/strings.xml", "one")
	writeFile(t, b, "res/values/strings.xml", "one")

	sa, err := inspect.Summarize(a)
	require.NoError(t, err)
	sb, err := inspect.Summarize(b)
	require.NoError(t, err)
	assert.Equal(t, sa.Digest, sb.Digest)

	writeFile(t, b, "res/values/strings.xml", "two")
	sb, err = inspect.Summarize(b)
	require.NoError(t, err)
	assert.NotEqual(t, sa.Digest, sb.Digest)
}

func TestSummarize_MissingRoot(t *testing.T) {
	s, err := inspect.Summarize(filepath.Join(t.TempDir(), "absent"))

	require.NoError(t, err)
	assert.False(t, s.Exists)
	assert.Equal(t, "0 B", s.Size())
}

func TestSummarize_FileRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file", "x")

	_, err := inspect.Summarize(filepath.Join(root, "file"))

	require.Error(t, err)
}

func TestSummary_Size(t *testing.T) {
	s := &inspect.Summary{Bytes: 1_500_000}
	assert.Equal(t, "1.5 MB", s.Size())
}

func writeZip(t *testing.T, path string, names ...string) {
	t.Helper()
	f, err := os.Create(path) //nolint:gosec // test path
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for _, name := range names {
		out, err := w.Create(name)
		require.NoError(t, err)
		_, err = out.Write([]byte(name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestCheckPackage(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsigned", func(t *testing.T) {
		path := filepath.Join(dir, "compiled.apk")
		writeZip(t, path, "AndroidManifest.xml", "classes.dex")

		c, err := inspect.CheckPackage(path)

		require.NoError(t, err)
		assert.True(t, c.Valid())
		assert.True(t, c.HasDex)
		assert.False(t, c.Signed)
		assert.Contains(t, c.Missing, "META-INF/CERT.SF")
	})

	t.Run("signed", func(t *testing.T) {
		path := filepath.Join(dir, "signed.apk")
		writeZip(t, path, "AndroidManifest.xml", "classes.dex",
			"META-INF/MANIFEST.MF", "META-INF/CERT.SF", "META-INF/CERT.RSA")

		c, err := inspect.CheckPackage(path)

		require.NoError(t, err)
		assert.True(t, c.Signed)
		assert.Empty(t, c.Missing)
		assert.Equal(t, 5, c.Entries)
	})

	t.Run("no manifest", func(t *testing.T) {
		path := filepath.Join(dir, "broken.apk")
		writeZip(t, path, "classes.dex")

		c, err := inspect.CheckPackage(path)

		require.NoError(t, err)
		assert.False(t, c.Valid())
	})

	t.Run("missing file", func(t *testing.T) {
		c, err := inspect.CheckPackage(filepath.Join(dir, "absent.apk"))

		require.NoError(t, err)
		assert.False(t, c.Exists)
		assert.False(t, c.Valid())
	})

	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(dir, "text.apk")
		writeFile(t, dir, "text.apk", "plain text")

		_, err := inspect.CheckPackage(path)

		require.Error(t, err)
	})
}
