package link

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanSerialPorts_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ttyUSB1", "ttyUSB0", "ttyACM0", "ttyS0", "random"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	got, err := ScanSerialPorts(dir)
	if err != nil {
		t.Fatalf("ScanSerialPorts: %v", err)
	}

	want := []string{
		filepath.Join(dir, "ttyACM0"),
		filepath.Join(dir, "ttyUSB0"),
		filepath.Join(dir, "ttyUSB1"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestScanSerialPorts_MissingDirReturnsError(t *testing.T) {
	if _, err := ScanSerialPorts(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
