package output

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/minio/highwayhash"
)

var key = []byte("gpp-output-fingerprint-key-00000")

// Format prefixes every line with its zero based index, as in "0| line".
func Format(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = fmt.Sprintf("%d| %s", i, line)
	}
	return strings.Join(lines, "\n")
}

func Fingerprint(data []byte) (uint64, error) {
	hash, err := highwayhash.New64(key)
	if err != nil {
		return 0, err
	}
	_, err = hash.Write(data)
	return hash.Sum64(), err
}

// WriteIfChanged writes text to path unless the file already holds the same
// content. It reports whether the file was written.
func WriteIfChanged(path, text string) (bool, error) {
	data := []byte(text)
	same, err := sameContent(path, data)
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// sameContent compares the file at path with data without reading the file
// into memory. A missing file differs.
func sameContent(path string, data []byte) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() != int64(len(data)) {
		return false, nil
	}

	hash, err := highwayhash.New64(key)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(hash, f); err != nil {
		return false, err
	}
	want, err := Fingerprint(data)
	if err != nil {
		return false, err
	}
	return hash.Sum64() == want, nil
}
