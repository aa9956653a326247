package android

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sipeed/devguard/pkg/detect"
	"github.com/sipeed/devguard/pkg/logger"
)

var propKeyRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Props reads system properties with getprop.
type Props struct {
	Shell detect.ShellRunner
}

func (p Props) Property(ctx context.Context, key string) (string, error) {
	if !propKeyRegex.MatchString(key) {
		return "", fmt.Errorf("invalid property key %q", key)
	}
	out, err := p.Shell.Run(ctx, "getprop "+key)
	if err != nil {
		return "", fmt.Errorf("getprop %s: %w", key, err)
	}
	return strings.TrimSpace(out), nil
}

// buildProps maps fingerprint fields to the properties backing
// android.os.Build.
var buildProps = []struct {
	key string
	set func(fp *detect.DeviceFingerprint, v string)
}{
	{"ro.build.fingerprint", func(fp *detect.DeviceFingerprint, v string) { fp.Fingerprint = v }},
	{"ro.product.model", func(fp *detect.DeviceFingerprint, v string) { fp.Model = v }},
	{"ro.product.manufacturer", func(fp *detect.DeviceFingerprint, v string) { fp.Manufacturer = v }},
	{"ro.product.brand", func(fp *detect.DeviceFingerprint, v string) { fp.Brand = v }},
	{"ro.product.device", func(fp *detect.DeviceFingerprint, v string) { fp.Device = v }},
	{"ro.product.name", func(fp *detect.DeviceFingerprint, v string) { fp.Product = v }},
	{"ro.hardware", func(fp *detect.DeviceFingerprint, v string) { fp.Hardware = v }},
	{"ro.build.tags", func(fp *detect.DeviceFingerprint, v string) { fp.Tags = v }},
}

// BuildReader assembles the device fingerprint from build properties.
// Unreadable properties leave their field empty.
type BuildReader struct {
	Props detect.PropertyReader
}

func (b BuildReader) Fingerprint(ctx context.Context) detect.DeviceFingerprint {
	var fp detect.DeviceFingerprint
	for _, bp := range buildProps {
		v, err := b.Props.Property(ctx, bp.key)
		if err != nil {
			logger.DebugCF("android", "Build property unreadable",
				map[string]interface{}{
					"key":            bp.key,
					"error":          err.Error(),
					"correlation_id": detect.CorrelationID(ctx),
				})
			continue
		}
		bp.set(&fp, v)
	}
	return fp
}
