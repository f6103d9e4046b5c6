//go:build amd64

package cli

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures reports the instruction-set extensions that matter for
// multi-precision arithmetic throughput. The benchmark banner includes
// them so recorded results carry the host capability context.
func CPUFeatures() string {
	var features []string
	if cpu.X86.HasAVX512F && cpu.X86.HasAVX512DQ {
		features = append(features, "AVX-512")
	}
	if cpu.X86.HasAVX2 {
		features = append(features, "AVX2")
	}
	if cpu.X86.HasBMI2 {
		features = append(features, "BMI2")
	}
	if cpu.X86.HasADX {
		features = append(features, "ADX")
	}
	return strings.Join(features, ", ")
}
