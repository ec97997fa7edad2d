package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dmora/codexrun"
)

// targetTriples maps GOOS/GOARCH to the triple used in the vendor layout.
var targetTriples = map[string]string{
	"linux/amd64":   "x86_64-unknown-linux-musl",
	"linux/arm64":   "aarch64-unknown-linux-musl",
	"darwin/amd64":  "x86_64-apple-darwin",
	"darwin/arm64":  "aarch64-apple-darwin",
	"windows/amd64": "x86_64-pc-windows-msvc",
	"windows/arm64": "aarch64-pc-windows-msvc",
}

// TargetTriple returns the vendor target triple for goos/goarch.
func TargetTriple(goos, goarch string) (string, error) {
	triple, ok := targetTriples[goos+"/"+goarch]
	if !ok {
		return "", &codexrun.UnsupportedPlatformError{OS: goos, Arch: goarch}
	}
	return triple, nil
}

// ResolveBinary locates the program to execute. A name containing a path
// separator is used as given. Otherwise the name is looked up on PATH, then
// under vendorDir (if set) for the running platform.
func ResolveBinary(name, vendorDir string) (string, error) {
	return resolveBinary(name, vendorDir, runtime.GOOS, runtime.GOARCH)
}

func resolveBinary(name, vendorDir, goos, goarch string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty binary name", codexrun.ErrUnavailable)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%w: %s: %w", codexrun.ErrUnavailable, name, err)
		}
		return name, nil
	}

	path, lookErr := exec.LookPath(name)
	if lookErr == nil {
		return path, nil
	}
	if vendorDir == "" {
		return "", fmt.Errorf("%w: %s: %w", codexrun.ErrUnavailable, name, lookErr)
	}

	triple, err := TargetTriple(goos, goarch)
	if err != nil {
		return "", err
	}
	exe := name
	if goos == "windows" {
		exe += ".exe"
	}
	vendored := filepath.Join(vendorDir, triple, "codex", exe)
	if _, err := os.Stat(vendored); err != nil {
		return "", fmt.Errorf("%w: %s: %w", codexrun.ErrUnavailable, name, errors.Join(lookErr, err))
	}
	return vendored, nil
}

// command builds the exec.Cmd for binary. On Windows the binary is started
// through cmd /C so that .cmd and .bat shims resolve.
func command(binary string, args []string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", append([]string{"/C", binary}, args...)...)
	}
	return exec.Command(binary, args...)
}
