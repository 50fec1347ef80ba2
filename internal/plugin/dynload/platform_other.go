//go:build !((darwin || freebsd || linux) && !android) && !windows

package dynload

import (
	"errors"
	"runtime"
)

type nativePlatform struct{}

func (nativePlatform) Open(string) (uintptr, error) {
	return 0, errors.New("dynamic loading unsupported on " + runtime.GOOS)
}

func (nativePlatform) Close(uintptr) error {
	return errors.New("dynamic loading unsupported on " + runtime.GOOS)
}
