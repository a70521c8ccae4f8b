package asr

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Device is the inference target, resolved once at model load time.
type Device string

const (
	DeviceCUDA  Device = "cuda"
	DeviceMetal Device = "metal"
	DeviceCPU   Device = "cpu"
)

// SupportsBatch reports whether the device can run batched chunk inference.
// The Metal backend of the engine binary runs single-waveform inference only,
// so chunked calls fall back to CPU for that call.
func (d Device) SupportsBatch() bool {
	return d != DeviceMetal
}

// ResolveDevice picks the inference device: explicit override, then CUDA,
// then Metal, then CPU. The choice never changes decoded text, only speed.
func ResolveDevice(override string) (Device, error) {
	return resolveDevice(override, hasCUDA(), hasMetal())
}

func resolveDevice(override string, cuda, metal bool) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(override))) {
	case DeviceCUDA, DeviceMetal, DeviceCPU:
		return Device(strings.ToLower(strings.TrimSpace(override))), nil
	case "", "auto":
	default:
		return "", fmt.Errorf("unknown device %q (use cuda, metal, cpu, or auto)", override)
	}

	if cuda {
		return DeviceCUDA, nil
	}
	if metal {
		return DeviceMetal, nil
	}
	return DeviceCPU, nil
}

func hasCUDA() bool {
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return true
	}
	if _, err := os.Stat("/proc/driver/nvidia"); err == nil {
		return true
	}
	return false
}

func hasMetal() bool {
	return runtime.GOOS == "darwin"
}
