//go:build windows

package dynload

import (
	"golang.org/x/sys/windows"
)

type nativePlatform struct{}

func (nativePlatform) Open(path string) (uintptr, error) {
	h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func (nativePlatform) Close(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}
