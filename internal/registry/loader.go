package registry

import (
	"path/filepath"
	"sort"
	"strings"

	"accelrt/internal/plugin/locate"
	"accelrt/pkg/types"
)

// Scanner turns plugin binaries found by a Locator into descriptors.
type Scanner struct {
	Locator *locate.Locator
}

// NewScanner returns a Scanner using l, or a default Locator when l is nil.
func NewScanner(l *locate.Locator) *Scanner {
	if l == nil {
		l = &locate.Locator{}
	}
	return &Scanner{Locator: l}
}

// Scan searches root and returns one descriptor per plugin, sorted by path.
// Errors are those of locate.Locator.Find.
func (s *Scanner) Scan(root string) ([]types.Plugin, error) {
	paths, err := s.Locator.Find(root)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	plugins := make([]types.Plugin, 0, len(paths))
	for _, p := range paths {
		plugins = append(plugins, Describe(p))
	}
	return plugins, nil
}

// LoadDir scans dir with a default Locator.
func LoadDir(dir string) ([]types.Plugin, error) {
	return NewScanner(nil).Scan(dir)
}

// Describe builds a descriptor from a plugin path. ID is the file name and
// Name the stem. Vendor is taken from after the marker
// (libLiteRtCompilerPlugin_Qualcomm -> Qualcomm) or, failing that, from
// before it (AcmeCompilerPlugin -> Acme).
func Describe(path string) types.Plugin {
	id := filepath.Base(path)
	stem := strings.TrimSuffix(id, filepath.Ext(id))
	return types.Plugin{ID: id, Name: stem, Vendor: vendorOf(stem), Path: path}
}

func vendorOf(stem string) string {
	i := strings.Index(stem, locate.PluginMarker)
	if i < 0 {
		return ""
	}
	if after := strings.Trim(stem[i+len(locate.PluginMarker):], "_-."); after != "" {
		return after
	}
	return strings.TrimPrefix(stem[:i], "lib")
}
