package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Entry is one file in a bundle. Open is called when the entry is written.
type Entry struct {
	Filename string
	Modified time.Time
	Open     func() (io.ReadCloser, error)
}

// Write streams entries into w as a zip archive and returns the number of
// uncompressed bytes written. Repeated names get a numeric suffix.
func Write(w io.Writer, entries []Entry) (int64, error) {
	zw := zip.NewWriter(w)
	used := make(map[string]int, len(entries))
	var total int64
	for _, entry := range entries {
		name := uniqueName(used, entry.Filename)
		n, err := writeEntry(zw, name, entry)
		total += n
		if err != nil {
			_ = zw.Close()
			return total, fmt.Errorf("zip %s: %w", name, err)
		}
	}
	return total, zw.Close()
}

func writeEntry(zw *zip.Writer, name string, entry Entry) (int64, error) {
	rc, err := entry.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: entry.Modified}
	if hdr.Modified.IsZero() {
		hdr.Modified = time.Now()
	}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, err
	}
	return io.Copy(fw, rc)
}

func uniqueName(used map[string]int, name string) string {
	name = strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if name == "" {
		name = "file"
	}
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
}
