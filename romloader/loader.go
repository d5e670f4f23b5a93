// Package romloader handles loading ROM and screen images from various
// sources, including compressed archives (ZIP, 7z, RAR, tar) and single
// compressed streams (gzip, xz, zstd, lz4, brotli).
package romloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
	magicXZ     = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	magicZstd   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	magicLZ4    = []byte{0x04, 0x22, 0x4D, 0x18}
)

// Maximum image size (1MB safety limit; the largest ROM is 32KB)
const maxROMSize = 1024 * 1024

// ErrNoROMFile is returned when no .rom or .scr file is found in an archive
var ErrNoROMFile = errors.New("no .rom or .scr file found in archive")

// ErrUnsupportedFormat is returned for unrecognized file formats
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrFileTooLarge is returned when extracted content exceeds size limit
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// formatType represents the detected file format
type formatType int

const (
	formatUnknown formatType = iota
	formatRaw
	formatZIP
	format7z
	formatGzip
	formatRAR
	formatTar
	formatXZ
	formatZstd
	formatLZ4
	formatBrotli
)

// LoadROM loads an image from a file path. It automatically detects and
// extracts from archives. Returns the image data, the filename of the image
// (useful for display), and any error encountered.
func LoadROM(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	// Read header for magic byte detection
	header := make([]byte, 16)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, "", fmt.Errorf("failed to read file header: %w", err)
	}
	header = header[:n]

	format := detectFormat(header, path)

	// Reset file position
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("failed to seek file: %w", err)
	}

	switch format {
	case formatRaw:
		data, err := limitedRead(f)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read ROM: %w", err)
		}
		return data, filepath.Base(path), nil

	case formatZIP:
		return extractFromZIP(path)

	case format7z:
		return extractFrom7z(path)

	case formatRAR:
		return extractFromRAR(path)

	case formatTar:
		return extractFromTar(f)

	case formatGzip, formatXZ, formatZstd, formatLZ4, formatBrotli:
		return extractFromStream(f, format, path)

	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// detectFormat determines the file format based on magic bytes and extension
func detectFormat(header []byte, path string) formatType {
	// Check magic bytes first (more reliable)
	magics := []struct {
		magic  []byte
		format formatType
	}{
		{magicZIP, formatZIP},
		{magicZIPEnd, formatZIP},
		{magicRAR, formatRAR},
		{magic7z, format7z},
		{magicXZ, formatXZ},
		{magicZstd, formatZstd},
		{magicLZ4, formatLZ4},
		{magicGzip, formatGzip},
	}
	for _, m := range magics {
		if bytes.HasPrefix(header, m.magic) {
			return m.format
		}
	}

	// Fall back to extension
	lower := strings.ToLower(path)
	switch filepath.Ext(lower) {
	case ".rom", ".scr":
		return formatRaw
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	case ".tar":
		return formatTar
	case ".xz", ".txz":
		return formatXZ
	case ".zst":
		return formatZstd
	case ".lz4":
		return formatLZ4
	case ".br":
		return formatBrotli
	}

	return formatUnknown
}

// isImageFile checks if a filename has a .rom or .scr extension
// (case-insensitive)
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".rom" || ext == ".scr"
}

// limitedRead reads from r up to maxROMSize bytes, returning an error if exceeded
func limitedRead(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, maxROMSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > maxROMSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
