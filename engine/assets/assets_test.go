package assets

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
)

func spirv(words int) []byte {
	code := make([]byte, words*4)
	binary.LittleEndian.PutUint32(code, vulkan.SPIRVMagic)
	return code
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidateSPIRV(t *testing.T) {
	for _, tc := range []struct {
		name string
		code []byte
		ok   bool
	}{
		{"empty", nil, false},
		{"unaligned", []byte{3, 2, 0x23, 7, 0}, false},
		{"bad magic", make([]byte, 8), false},
		{"valid", spirv(5), true},
	} {
		err := ValidateSPIRV(tc.code)
		if (err == nil) != tc.ok {
			t.Errorf("%s: ValidateSPIRV = %v", tc.name, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidShader) {
			t.Errorf("%s: %v does not wrap ErrInvalidShader", tc.name, err)
		}
	}
}

func TestShaderLibraryIndexesRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "builtin", "clear.vert.spv"), spirv(6))
	writeFile(t, filepath.Join(root, "builtin", "clear.frag.spv"), spirv(7))
	writeFile(t, filepath.Join(root, "broken.spv"), []byte("not spirv"))
	writeFile(t, filepath.Join(root, "readme.txt"), []byte("ignored"))

	sl, err := NewShaderLibrary(root)
	if err != nil {
		t.Fatalf("NewShaderLibrary: %v", err)
	}
	defer sl.Close()

	names := sl.Names()
	if len(names) != 2 || names[0] != "builtin/clear.frag" || names[1] != "builtin/clear.vert" {
		t.Fatalf("Names() = %v", names)
	}
	asset, err := sl.Load("builtin/clear.vert")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(asset.Code) != 24 {
		t.Errorf("code is %d bytes", len(asset.Code))
	}
	if _, err := sl.Load("broken"); !errors.Is(err, ErrShaderNotFound) {
		t.Errorf("Load(broken) = %v", err)
	}
}

func TestShaderLibraryReloadsOnChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.spv"), spirv(5))
	sl, err := NewShaderLibrary(root)
	if err != nil {
		t.Fatalf("NewShaderLibrary: %v", err)
	}
	defer sl.Close()
	if err := sl.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// Rename into place so the watcher never sees a partial file.
	tmp := filepath.Join(root, "b.tmp")
	writeFile(t, tmp, spirv(9))
	if err := os.Rename(tmp, filepath.Join(root, "b.spv")); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case name := <-sl.Reloads():
			if name != "b" {
				continue
			}
			asset, err := sl.Load("b")
			if err != nil || len(asset.Code) != 36 {
				t.Fatalf("Load(b) after reload: %v", err)
			}
			return
		case <-deadline:
			t.Fatalf("no reload notification for b")
		}
	}
}

func TestShaderLibraryClose(t *testing.T) {
	sl, err := NewShaderLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewShaderLibrary: %v", err)
	}
	if err := sl.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := sl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sl.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := sl.Watch(); !errors.Is(err, ErrLibraryClosed) {
		t.Errorf("Watch after Close = %v", err)
	}
}
