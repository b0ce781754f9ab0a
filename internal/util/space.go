package util

// MinFreeSpace is the free space below which kept artifacts trigger a warning.
const MinFreeSpace = 2 * GiB

// CheckDiskSpace reports whether path has at least MinFreeSpace available.
// When it does not, logf (if non-nil) is called with a warning. Unknown free
// space counts as sufficient.
func CheckDiskSpace(path string, logf func(format string, args ...any)) bool {
	avail := GetAvailableSpace(path)
	if avail == 0 || avail >= MinFreeSpace {
		return true
	}
	if logf != nil {
		logf("Low disk space in %s: %s available", path, FormatBytes(avail))
	}
	return false
}
