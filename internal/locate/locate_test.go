package locate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestBinaryName(t *testing.T) {
	if got := BinaryName("windows"); got != "backend-server.exe" {
		t.Errorf("windows: got %q", got)
	}
	for _, goos := range []string{"linux", "darwin", "freebsd"} {
		if got := BinaryName(goos); got != "backend-server" {
			t.Errorf("%s: got %q", goos, got)
		}
	}
}

func TestCandidatesOrder(t *testing.T) {
	dirs := Dirs{ExecutableDir: "/exe", ResourceDir: "/res", CurrentExeParent: "/cur"}
	want := []string{
		filepath.Join("/exe", "backend-server"),
		filepath.Join("/res", "binaries", "backend-server"),
		filepath.Join("/res", "backend-server"),
		filepath.Join("/cur", "backend-server"),
	}
	if got := Candidates("linux", dirs); !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates = %v, want %v", got, want)
	}
}

func TestCandidatesSkipUnavailableDirs(t *testing.T) {
	got := Candidates("windows", Dirs{ResourceDir: "/res"})
	want := []string{
		filepath.Join("/res", "binaries", "backend-server.exe"),
		filepath.Join("/res", "backend-server.exe"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates = %v, want %v", got, want)
	}

	if got := Candidates("linux", Dirs{}); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestResolvePicksResourceBinaries(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	if err := os.MkdirAll(a, 0755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(b, "binaries", "backend-server"))

	got, ok := Resolve("linux", Dirs{ExecutableDir: a, ResourceDir: b}, quietLogger())
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if want := filepath.Join(b, "binaries", "backend-server"); got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveFirstExistingWins(t *testing.T) {
	root := t.TempDir()
	dirs := Dirs{
		ExecutableDir:    filepath.Join(root, "exe"),
		ResourceDir:      filepath.Join(root, "res"),
		CurrentExeParent: filepath.Join(root, "cur"),
	}
	candidates := Candidates("linux", dirs)

	// Every non-empty subset of existing candidates resolves to its lowest index.
	for mask := 1; mask < 1<<len(candidates); mask++ {
		sub := t.TempDir()
		local := Dirs{
			ExecutableDir:    filepath.Join(sub, "exe"),
			ResourceDir:      filepath.Join(sub, "res"),
			CurrentExeParent: filepath.Join(sub, "cur"),
		}
		paths := Candidates("linux", local)
		first := -1
		for i, p := range paths {
			if mask&(1<<i) != 0 {
				touch(t, p)
				if first < 0 {
					first = i
				}
			}
		}
		got, ok := Resolve("linux", local, quietLogger())
		if !ok {
			t.Fatalf("mask %b: expected resolution", mask)
		}
		if got != paths[first] {
			t.Errorf("mask %b: Resolve = %q, want %q", mask, got, paths[first])
		}
	}
}

func TestResolveNothingFound(t *testing.T) {
	root := t.TempDir()
	_, ok := Resolve("linux", Dirs{ExecutableDir: root, ResourceDir: root}, quietLogger())
	if ok {
		t.Error("expected no resolution")
	}
}

func TestResolveIgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "backend-server"), 0755); err != nil {
		t.Fatal(err)
	}
	if _, ok := Resolve("linux", Dirs{ExecutableDir: root}, quietLogger()); ok {
		t.Error("a directory named like the binary must not resolve")
	}
}

func TestHostDirsResourceOverride(t *testing.T) {
	dirs := HostDirs("linux", "/opt/app/resources")
	if dirs.ResourceDir != "/opt/app/resources" {
		t.Errorf("ResourceDir = %q", dirs.ResourceDir)
	}
	if dirs.CurrentExeParent == "" {
		t.Error("expected current exe parent to be known in tests")
	}
}

func TestHostDirsExecutableDirLinuxOnly(t *testing.T) {
	t.Setenv("XDG_BIN_HOME", "/xdg/bin")
	if got := HostDirs("linux", "").ExecutableDir; got != "/xdg/bin" {
		t.Errorf("linux ExecutableDir = %q, want /xdg/bin", got)
	}
	if got := HostDirs("darwin", "").ExecutableDir; got != "" {
		t.Errorf("darwin ExecutableDir = %q, want empty", got)
	}
}

func TestHostDirsDarwinResources(t *testing.T) {
	dirs := HostDirs("darwin", "")
	want := filepath.Join(filepath.Dir(dirs.CurrentExeParent), "Resources")
	if dirs.ResourceDir != want {
		t.Errorf("ResourceDir = %q, want %q", dirs.ResourceDir, want)
	}
}

func TestWaitAlreadyPresent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "backend-server")
	touch(t, path)

	got, err := Wait(context.Background(), []string{path}, quietLogger())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != path {
		t.Errorf("Wait = %q, want %q", got, path)
	}
}

func TestWaitForCreate(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "backend-server")

	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(path, []byte("bin"), 0755)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := Wait(ctx, []string{path}, quietLogger())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != path {
		t.Errorf("Wait = %q, want %q", got, path)
	}
}

func TestWaitCancelled(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := Wait(ctx, []string{filepath.Join(root, "backend-server")}, quietLogger()); err == nil {
		t.Error("expected error after context deadline")
	}
}

func TestWaitNoDirectories(t *testing.T) {
	_, err := Wait(context.Background(), []string{"/does/not/exist/backend-server"}, quietLogger())
	if err == nil {
		t.Error("expected error when no candidate directory exists")
	}
}
