package romloader

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// tarMagic sits at offset 257 of the first tar header block
var tarMagic = []byte("ustar")

// extractFromStream decompresses a single compressed stream. The payload is
// either a tar archive, searched like any other archive, or the image itself
// named after the compressed file minus its extension.
func extractFromStream(r io.Reader, format formatType, path string) ([]byte, string, error) {
	name := innerName(path)

	var dr io.Reader
	switch format {
	case formatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open gzip: %w", err)
		}
		defer zr.Close()
		if zr.Name != "" {
			name = filepath.Base(zr.Name)
		}
		dr = zr

	case formatXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open xz: %w", err)
		}
		dr = xr

	case formatZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open zstd: %w", err)
		}
		defer dec.Close()
		dr = dec

	case formatLZ4:
		dr = lz4.NewReader(r)

	case formatBrotli:
		dr = brotli.NewReader(r)

	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	data, err := limitedRead(dr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress %s: %w", filepath.Base(path), err)
	}

	if isTar(data) {
		return extractFromTar(bytes.NewReader(data))
	}
	if !isImageFile(name) {
		return nil, "", ErrNoROMFile
	}
	return data, name, nil
}

// innerName derives the name of the payload from the compressed file's name
func innerName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".tgz", ".txz":
		return strings.TrimSuffix(base, ext) + ".tar"
	case ".gz", ".xz", ".zst", ".lz4", ".br":
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// isTar reports whether data starts with a POSIX tar header
func isTar(data []byte) bool {
	return len(data) >= 262 && bytes.Equal(data[257:262], tarMagic)
}
