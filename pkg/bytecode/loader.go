package bytecode

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// Extension is the file suffix .omf modules carry on disk.
const Extension = ".omf"

// ResolvePath implements the VM's simple name→path rule (spec.md §4.6):
// append .omf to name, unless it already carries the extension.
func ResolvePath(name string) string {
	if strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}

// LoadFile memory-maps path and decodes it as a .omf container. Large
// read-only module images are exactly the shape of blob the rest of the
// retrieval pack reaches for mmap on (ProbeChain-go-probe's
// go-probe-master/go.mod vendors github.com/edsrzf/mmap-go for this);
// a module that will be invoked many times without being mutated is a
// natural fit for mapping it once instead of copying it into a []byte.
//
// An empty file is rejected with an error. If the platform refuses mmap
// on a non-empty file, LoadFile falls back to a plain read.
func LoadFile(path string) (*Container, error) {
	name := strings.TrimSuffix(filepath.Base(path), Extension)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("load %s: empty module file", path)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		// Fall back to a plain read for files mmap refuses (pipes,
		// special files, and similar).
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, fmt.Errorf("read %s: %w", path, rerr)
		}
		c, derr := Decode(bytes.NewReader(data), name)
		if derr != nil {
			return nil, fmt.Errorf("decode %s: %w", path, derr)
		}
		return c, nil
	}
	defer m.Unmap()

	c, err := Decode(bytes.NewReader(m), name)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return c, nil
}
