package utils

import (
	"os"
	"strings"

	"github.com/sipeed/devguard/pkg/detect"
)

// buildPropPath exists on every Android system image.
var buildPropPath = "/system/build.prop"

// IsTermux returns true if running inside the Termux terminal emulator on Android.
func IsTermux() bool {
	if os.Getenv("TERMUX_VERSION") != "" {
		return true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	return strings.Contains(home, "com.termux")
}

// IsAndroid returns true if running on an Android device.
func IsAndroid() bool {
	_, err := os.Stat(buildPropPath)
	return err == nil
}

// PlatformDetector returns a detect.PlatformFunc. Off-device, the host
// counts as a trusted development machine only when trustedDevHost is set.
func PlatformDetector(trustedDevHost bool) detect.PlatformFunc {
	return func() detect.Platform {
		if IsAndroid() {
			return detect.PlatformAndroid
		}
		if trustedDevHost {
			return detect.PlatformTrustedHost
		}
		return detect.PlatformOther
	}
}
