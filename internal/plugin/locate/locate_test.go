package locate

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accelrt/internal/metrics"
	"accelrt/internal/status"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
}

func TestFindPluginsNested(t *testing.T) {
	ext := SharedLibExt()
	root := t.TempDir()
	foo := filepath.Join(root, "fooCompilerPlugin"+ext)
	bar := filepath.Join(root, "nested", "deeper", "barCompilerPlugin"+ext)
	touch(t, foo)
	touch(t, filepath.Join(root, "notmatching"+ext))
	touch(t, bar)

	got, err := FindPlugins(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{foo, bar}, got)
}

func TestFindPluginsFiltering(t *testing.T) {
	ext := SharedLibExt()
	root := t.TempDir()
	want := []string{
		filepath.Join(root, "libLiteRtCompilerPlugin_Qualcomm"+ext),
		filepath.Join(root, "AcmeCompilerPlugin.v2"+ext),
	}
	for _, p := range want {
		touch(t, p)
	}
	for _, name := range []string{
		"acmecompilerplugin" + ext,         // case-sensitive
		"AcmeCompilerPlugin.txt",           // wrong extension
		"AcmeCompilerPlugin" + ext + ".bak", // extension must be last
		"AcmePlugin" + ext,
	} {
		touch(t, filepath.Join(root, name))
	}
	// A directory whose name matches is recursed into, never collected.
	require.NoError(t, os.Mkdir(filepath.Join(root, "dirCompilerPlugin"+ext), 0o755))

	got, err := FindPlugins(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)
}

func TestPrefixRestrictsVendor(t *testing.T) {
	ext := SharedLibExt()
	root := t.TempDir()
	keep := filepath.Join(root, "libLiteRtCompilerPlugin_MediaTek"+ext)
	touch(t, keep)
	touch(t, filepath.Join(root, "OtherCompilerPlugin"+ext))

	l := Locator{Prefix: "libLiteRt"}
	got, err := l.Find(root)
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, got)
}

func TestFindPluginsMissingRoot(t *testing.T) {
	_, err := FindPlugins(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.True(t, status.IsNotFound(err), "got %v", err)
}

func TestFindPluginsRootIsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	touch(t, f)
	_, err := FindPlugins(f)
	assert.True(t, status.IsInvalidArgument(err), "got %v", err)
}

func TestFindPluginsUnreadableRoot(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("needs POSIX permissions enforced for the current user")
	}
	root := filepath.Join(t.TempDir(), "locked")
	touch(t, filepath.Join(root, "fooCompilerPlugin"+SharedLibExt()))
	require.NoError(t, os.Chmod(root, 0))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	_, err := FindPlugins(root)
	require.Error(t, err)
	assert.False(t, status.IsNotFound(err), "unreadable root reported as missing: %v", err)
	assert.True(t, status.IsInvalidArgument(err), "got %v", err)
}

func TestBadPrefixPattern(t *testing.T) {
	l := Locator{Prefix: "["}
	_, err := l.Find(t.TempDir())
	assert.True(t, status.IsInvalidArgument(err), "got %v", err)
}

func TestSymlinkCycleFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "fooCompilerPlugin"+SharedLibExt()))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "a", "loop")))

	_, err := FindPlugins(root)
	require.Error(t, err)
	assert.True(t, status.IsTraversalLimit(err), "got %v", err)
}

func TestSymlinkedDirectoryVisitedOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	shared := filepath.Join(root, "shared")
	touch(t, filepath.Join(shared, "fooCompilerPlugin"+SharedLibExt()))
	require.NoError(t, os.Symlink(shared, filepath.Join(root, "alias")))

	got, err := FindPlugins(root)
	require.NoError(t, err)
	assert.Len(t, got, 1, "a directory reachable twice is searched once: %v", got)
}

func TestMaxDepth(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "1", "2", "3")
	touch(t, filepath.Join(deep, "fooCompilerPlugin"+SharedLibExt()))

	l := Locator{MaxDepth: 2}
	_, err := l.Find(root)
	assert.True(t, status.IsTraversalLimit(err), "got %v", err)

	l.MaxDepth = 3
	got, err := l.Find(root)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFindRecordsDiscoveredMetric(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "xCompilerPlugin"+SharedLibExt()))
	l := Locator{Metrics: metrics.NewPlugins(prometheus.NewRegistry())}
	got, err := l.Find(root)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSharedLibExt(t *testing.T) {
	assert.Equal(t, ".so", sharedLibExt("linux"))
	assert.Equal(t, ".dylib", sharedLibExt("darwin"))
	assert.Equal(t, ".dll", sharedLibExt("windows"))
	assert.True(t, strings.HasPrefix(SharedLibExt(), "."))
}

func TestMatch(t *testing.T) {
	l := Locator{Ext: ".so"}
	assert.True(t, l.Match("fooCompilerPlugin.so"))
	assert.False(t, l.Match("fooCompilerPlugin.dylib"))
	assert.False(t, l.Match("CompilerPluginfoo"))
	assert.Equal(t, "*CompilerPlugin*.so", l.Pattern())
}
