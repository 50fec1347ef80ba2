//go:build (darwin || freebsd || linux) && !android

package dynload

import (
	"runtime"

	"github.com/ebitengine/purego"
)

// rtldDeepBind is glibc's RTLD_DEEPBIND; purego does not export it.
const rtldDeepBind = 0x00008

type nativePlatform struct{}

func openFlags() int {
	flags := purego.RTLD_NOW | purego.RTLD_LOCAL
	if runtime.GOOS == "linux" {
		flags |= rtldDeepBind
	}
	return flags
}

func (nativePlatform) Open(path string) (uintptr, error) {
	return purego.Dlopen(path, openFlags())
}

func (nativePlatform) Close(handle uintptr) error {
	return purego.Dlclose(handle)
}
