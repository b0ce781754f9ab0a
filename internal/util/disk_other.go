//go:build !(linux || darwin || freebsd)

package util

// GetAvailableSpace is not supported on this platform and always returns 0.
func GetAvailableSpace(path string) uint64 {
	return 0
}
