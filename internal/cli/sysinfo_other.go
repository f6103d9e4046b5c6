//go:build !amd64

package cli

// CPUFeatures reports nothing on architectures where no feature probe is
// wired; the banner simply omits the line.
func CPUFeatures() string {
	return ""
}
