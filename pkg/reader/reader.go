// Package reader selects a spectral library reader by file format.
package reader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/library"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
	"github.com/ChrisMcGann/FragKey/pkg/reader/msp"
	"github.com/ChrisMcGann/FragKey/pkg/reader/sptxt"
)

// Supported library formats.
const (
	FormatMSP   = "msp"
	FormatSPTXT = "sptxt"
)

// ErrUnknownFormat is returned for unsupported library formats.
var ErrUnknownFormat = errors.New("unknown library format")

// DetectFormat infers the library format from the file extension.
func DetectFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".msp":
		return FormatMSP, nil
	case ".sptxt":
		return FormatSPTXT, nil
	default:
		return "", fmt.Errorf("%w: %q (use --from to choose msp or sptxt)", ErrUnknownFormat, ext)
	}
}

// Open returns a streaming reader for format over r.
func Open(r io.Reader, format string, reg *ptm.Registry) (library.Reader, error) {
	switch strings.ToLower(format) {
	case FormatMSP:
		return msp.NewReader(r, reg), nil
	case FormatSPTXT:
		return sptxt.NewReader(r, reg), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
