package datafile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
)

// Format names an on-disk grid layout
type Format string

const (
	FormatText    Format = "text"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat converts a format name; an empty name selects text
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "dat", "txt":
		return FormatText, nil
	case "msgpack", "mpk":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unsupported data format %q", s)
}

// FormatFromPath picks a format from the file extension; anything other
// than .msgpack or .mpk is treated as text
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return FormatMsgpack
	}
	return FormatText
}

// Load reads a dataset from path in the given format
func Load(path string, format Format) (udv.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return udv.Dataset{}, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatMsgpack:
		return ReadMsgpack(f)
	default:
		return ReadTable(f)
	}
}

// Save writes ds to path in the given format, replacing any existing file
func Save(path string, format Format, ds udv.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	switch format {
	case FormatMsgpack:
		err = WriteMsgpack(f, ds)
	default:
		err = WriteTable(f, ds)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return f.Close()
}

// SaveProfile writes a two-column depth / mean velocity table
func SaveProfile(path string, depth, profile []float64) error {
	if len(depth) != len(profile) {
		return fmt.Errorf("%w: %d depths for %d profile values", udv.ErrMalformedInput, len(depth), len(profile))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	for i := range depth {
		if _, err := fmt.Fprintf(f, "%s %s\n", formatValue(depth[i]), formatValue(profile[i])); err != nil {
			f.Close()
			return fmt.Errorf("error writing %s: %w", path, err)
		}
	}
	return f.Close()
}
