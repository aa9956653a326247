package utils

import (
	"os"
	"runtime/debug"

	"github.com/sipeed/devguard/pkg/detect"
)

// Android runs adb shell sessions as this uid.
const androidShellUID = 2000

// Host reports how the running binary was built and launched.
type Host struct{}

func (Host) Host() detect.HostInfo {
	bi, _ := debug.ReadBuildInfo()
	return hostInfoFrom(bi, IsTermux(), os.Getuid())
}

func hostInfoFrom(bi *debug.BuildInfo, termux bool, uid int) detect.HostInfo {
	info := detect.HostInfo{
		Installer:   "unknown",
		InstallMode: "native",
		BuildID:     "dev",
	}

	switch {
	case termux:
		info.InstallMode = "termux"
	case uid == androidShellUID:
		info.InstallMode = "adb-shell"
	}

	if bi == nil {
		return info
	}

	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Installer = "go-install"
	} else {
		info.Installer = "source"
	}

	modified := true
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.BuildID = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	// Module builds carry no VCS stamp; treat the tagged version as the id.
	if info.Installer == "go-install" && info.BuildID == "dev" {
		info.BuildID = bi.Main.Version
		modified = false
	}
	info.Genuine = !modified
	return info
}
