// Package prof exposes small helpers around runtime/pprof for the CLI
// profiling flags.
package prof

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
)

var cpuFile *os.File

// StartCPU begins a CPU profile written to path.
func StartCPU(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cpu profile %q: %w", path, err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("start cpu profile: %w", err)
	}
	cpuFile = f
	return nil
}

// StopCPU stops the CPU profile started by StartCPU and closes the file.
func StopCPU() {
	if cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	cpuFile.Close()
	cpuFile = nil
}

// WriteMem writes a heap profile to path after forcing a GC so the
// numbers reflect live allocations.
func WriteMem(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mem profile %q: %w", path, err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("write mem profile: %w", err)
	}
	return nil
}
