package link

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanSerialPorts enumerates likely UART device nodes under devPath (by
// default "/dev"), matching ttyUSB*/ttyACM* entries.
func ScanSerialPorts(devPath string) ([]string, error) {
	if devPath == "" {
		devPath = "/dev"
	}
	entries, err := os.ReadDir(devPath)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
			ports = append(ports, filepath.Join(devPath, name))
		}
	}
	sort.Strings(ports)
	return ports, nil
}
