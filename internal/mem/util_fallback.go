//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly && !windows

package mem

func lockMemoryPlatform() (ProtectionLevel, error) {
	// No way to prevent swapping here; zeroing buffers is the only measure.
	return ProtectionPartial, nil
}

func unlockMemoryPlatform() error {
	return nil
}
