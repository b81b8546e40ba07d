// Package locate finds the backend sidecar executable across installation layouts.
//
// Resolution is read-only: it checks candidate paths in a fixed priority order
// and never executes or modifies anything.
package locate

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// BaseName is the sidecar executable name without a platform suffix.
const BaseName = "backend-server"

// Dirs holds the base directories candidates are built from.
// An empty field means the lookup for that directory failed; it is skipped.
type Dirs struct {
	ExecutableDir    string
	ResourceDir      string
	CurrentExeParent string
}

// BinaryName returns the sidecar executable name for goos.
func BinaryName(goos string) string {
	if goos == "windows" {
		return BaseName + ".exe"
	}
	return BaseName
}

// Candidates returns the candidate executable paths in priority order.
func Candidates(goos string, dirs Dirs) []string {
	name := BinaryName(goos)
	var candidates []string

	if dirs.ExecutableDir != "" {
		candidates = append(candidates, filepath.Join(dirs.ExecutableDir, name))
	}
	if dirs.ResourceDir != "" {
		candidates = append(candidates,
			filepath.Join(dirs.ResourceDir, "binaries", name),
			filepath.Join(dirs.ResourceDir, name),
		)
	}
	if dirs.CurrentExeParent != "" {
		candidates = append(candidates, filepath.Join(dirs.CurrentExeParent, name))
	}
	return candidates
}

// Resolve returns the first candidate that exists as a file on disk.
// When none exists it logs every checked location and returns false.
func Resolve(goos string, dirs Dirs, logger *slog.Logger) (string, bool) {
	candidates := Candidates(goos, dirs)
	if path, ok := First(candidates); ok {
		return path, true
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("backend sidecar not found", "checked", candidates)
	return "", false
}

// First returns the first path in candidates that is an existing regular file.
func First(candidates []string) (string, bool) {
	for _, c := range candidates {
		if isFile(c) {
			return c, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// HostDirs derives the base directories from the running process.
// resourceDir overrides the platform default resource directory when non-empty.
func HostDirs(goos, resourceDir string) Dirs {
	var dirs Dirs

	dirs.ExecutableDir = executableDir(goos)

	exeParent := ""
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		exeParent = filepath.Dir(exe)
	}
	dirs.CurrentExeParent = exeParent

	switch {
	case resourceDir != "":
		dirs.ResourceDir = resourceDir
	case exeParent == "":
		// no base to derive from
	case goos == "darwin":
		// Foo.app/Contents/MacOS/foo -> Foo.app/Contents/Resources
		dirs.ResourceDir = filepath.Join(filepath.Dir(exeParent), "Resources")
	default:
		dirs.ResourceDir = exeParent
	}
	return dirs
}

// Host is HostDirs for the current platform.
func Host(resourceDir string) Dirs {
	return HostDirs(runtime.GOOS, resourceDir)
}

// executableDir follows the XDG user executable directory, which only exists on Linux.
func executableDir(goos string) string {
	if goos != "linux" {
		return ""
	}
	if dir := os.Getenv("XDG_BIN_HOME"); filepath.IsAbs(dir) {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "bin")
}
