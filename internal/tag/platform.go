package tag

import "fmt"

// Detect returns the tag a wheel builder would pick on its own for a
// platform-specific archive built for goos/goarch.
func Detect(goos, goarch string) Tag {
	return Tag{Python: "py3", ABI: NoABI, Platform: DetectPlatform(goos, goarch)}
}

// DetectPlatform converts Go's GOOS/GOARCH to wheel platform naming.
// Wheel platforms use the kernel's machine names ("x86_64", "aarch64")
// rather than Go's ("amd64", "arm64"), except on Windows.
func DetectPlatform(goos, goarch string) string {
	switch goos {
	case "linux":
		return "linux_" + machine(goarch)
	case "darwin":
		if goarch == "arm64" {
			return "macosx_11_0_arm64"
		}
		return "macosx_10_9_" + machine(goarch)
	case "windows":
		switch goarch {
		case "386":
			return "win32"
		case "arm64":
			return "win_arm64"
		default:
			return "win_" + goarch
		}
	}
	return fmt.Sprintf("%s_%s", goos, machine(goarch))
}

func machine(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	}
	return goarch
}
