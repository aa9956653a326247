package detect

import "strings"

// emulatorRule returns a non-empty reason when fp matches a known
// emulator signature.
type emulatorRule func(fp DeviceFingerprint) string

func containsAny(field, kind string, needles ...string) string {
	for _, n := range needles {
		if strings.Contains(field, n) {
			return kind + ":" + n
		}
	}
	return ""
}

func equalsAny(field, kind string, values ...string) string {
	for _, v := range values {
		if field == v {
			return kind + ":" + v
		}
	}
	return ""
}

var emulatorRules = []emulatorRule{
	func(fp DeviceFingerprint) string {
		return containsAny(fp.Fingerprint, "fingerprint", "generic", "unknown")
	},
	func(fp DeviceFingerprint) string {
		return containsAny(fp.Model, "model", "google_sdk", "Emulator", "Android SDK built for x86")
	},
	func(fp DeviceFingerprint) string {
		return containsAny(fp.Manufacturer, "manufacturer", "Genymotion")
	},
	func(fp DeviceFingerprint) string {
		if strings.Contains(fp.Brand, "generic") && strings.Contains(fp.Device, "generic") {
			return "brand+device:generic"
		}
		return ""
	},
	func(fp DeviceFingerprint) string {
		return equalsAny(fp.Product, "product", "google_sdk", "unknown")
	},
	func(fp DeviceFingerprint) string {
		return containsAny(fp.Hardware, "hardware", "goldfish", "ranchu")
	},
}

// EmulatorDetector matches build metadata against known emulator
// signatures. It makes no external calls.
type EmulatorDetector struct{}

func NewEmulatorDetector() *EmulatorDetector {
	return &EmulatorDetector{}
}

// Evaluate reports whether platform and fp describe an emulator. A trusted
// development host always counts as one; any other non-Android platform
// never does. All comparisons are case-sensitive.
func (d *EmulatorDetector) Evaluate(platform Platform, fp DeviceFingerprint) EmulatorVerdict {
	switch platform {
	case PlatformTrustedHost:
		return EmulatorVerdict{Emulator: true, Reason: "host:trusted-dev"}
	case PlatformAndroid:
	default:
		return EmulatorVerdict{}
	}

	for _, rule := range emulatorRules {
		if reason := rule(fp); reason != "" {
			return EmulatorVerdict{Emulator: true, Reason: reason}
		}
	}
	return EmulatorVerdict{}
}
