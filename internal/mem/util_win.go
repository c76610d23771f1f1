//go:build windows

package mem

func lockMemoryPlatform() (ProtectionLevel, error) {
	// VirtualLock exists on Windows but has tight per-process quotas, so we
	// rely on buffer wiping instead.
	return ProtectionPartial, nil
}

func unlockMemoryPlatform() error {
	return nil
}
