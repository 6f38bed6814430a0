package isa

import (
	"runtime"

	"golang.org/x/sys/cpu"
	"tlog.app/go/errors"
)

// Host returns the Target describing the machine this process runs on.
func Host() (*Target, error) {
	switch runtime.GOARCH {
	case "amd64":
		return NewTarget(ArchX86_64, x86Features()...), nil
	case "386":
		return NewTarget(ArchI686, x86Features()...), nil
	case "arm64":
		if !cpu.ARM64.HasASIMD {
			return nil, errors.New("arm64 host without ASIMD")
		}
		return NewTarget(ArchAarch64), nil
	case "riscv64":
		if cpu.RISCV64.HasV {
			return NewTarget(ArchRiscv64, FeatureV), nil
		}
		return NewTarget(ArchRiscv64), nil
	}
	return nil, errors.New("unsupported host architecture %s", runtime.GOARCH)
}

func x86Features() (fs []Feature) {
	if cpu.X86.HasSSSE3 {
		fs = append(fs, FeatureSSSE3)
	}
	if cpu.X86.HasAVX2 {
		fs = append(fs, FeatureAVX2)
	}
	return fs
}
