package detect

import (
	"strconv"
	"strings"
)

// Summary formats r as
//
//	installer/mode/build/Genuine:b[/Rooted:b[/RootReason:r]/Emulator:b/Model:...]
//
// Device fields are only appended on Android.
func (r Report) Summary() string {
	var sb strings.Builder
	sb.Grow(256)

	sb.WriteString(r.Host.Installer)
	sb.WriteString("/")
	sb.WriteString(r.Host.InstallMode)
	sb.WriteString("/")
	sb.WriteString(r.Host.BuildID)
	sb.WriteString("/Genuine:")
	sb.WriteString(strconv.FormatBool(r.Host.Genuine))

	if r.Platform != PlatformAndroid {
		return sb.String()
	}

	sb.WriteString("/Rooted:")
	sb.WriteString(strconv.FormatBool(r.Root.Rooted))
	if r.Root.Rooted {
		sb.WriteString("/RootReason:")
		sb.WriteString(r.Root.Reason)
	}
	sb.WriteString("/Emulator:")
	sb.WriteString(strconv.FormatBool(r.Emulator.Emulator))

	fp := r.Fingerprint
	for _, kv := range [][2]string{
		{"Model", fp.Model},
		{"Manufacturer", fp.Manufacturer},
		{"Brand", fp.Brand},
		{"Device", fp.Device},
		{"Fingerprint", fp.Fingerprint},
		{"Product", fp.Product},
		{"Hardware", fp.Hardware},
		{"Tags", fp.Tags},
	} {
		sb.WriteString("/")
		sb.WriteString(kv[0])
		sb.WriteString(":")
		sb.WriteString(kv[1])
	}
	return sb.String()
}
