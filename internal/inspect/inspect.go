package inspect

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUndecodable reports content that no registered decoder recognizes.
var ErrUndecodable = errors.New("undecodable image")

// Info describes a decodable image.
type Info struct {
	Format string
	Width  int
	Height int
}

// ShortSide returns the smaller of width and height.
func (i Info) ShortSide() int {
	return min(i.Width, i.Height)
}

// Inspector reports whether a file is an image, its format tag, and its
// pixel dimensions. Implementations return ErrUndecodable (possibly wrapped)
// for content that is not an image and any other error for I/O failures.
type Inspector interface {
	Inspect(path string) (Info, error)
}

// ImageInspector inspects files with the decoders registered in the image
// package: JPEG, PNG, GIF, BMP, TIFF, and WEBP. Only headers are decoded.
type ImageInspector struct{}

var upper = cases.Upper(language.Und)

// FormatTag converts a decoder name such as "jpeg" into the stored tag "JPEG".
func FormatTag(decoderName string) string {
	return upper.String(decoderName)
}

// Inspect implements Inspector.
func (ImageInspector) Inspect(path string) (info Info, err error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := &errRecorder{r: file}
	defer func() {
		// Header decoders are not hardened against every malformed input.
		if r := recover(); r != nil {
			info = Info{}
			err = fmt.Errorf("%w: decoder panic: %v", ErrUndecodable, r)
		}
	}()

	cfg, name, decodeErr := image.DecodeConfig(bufio.NewReader(reader))
	if decodeErr != nil {
		if reader.err != nil {
			return Info{}, fmt.Errorf("read %s: %w", path, reader.err)
		}
		return Info{}, fmt.Errorf("%w: %v", ErrUndecodable, decodeErr)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: non-positive dimensions %dx%d", ErrUndecodable, cfg.Width, cfg.Height)
	}
	return Info{Format: FormatTag(name), Width: cfg.Width, Height: cfg.Height}, nil
}

// errRecorder keeps the first non-EOF read error so truncated files are told
// apart from unreadable ones.
type errRecorder struct {
	r   io.Reader
	err error
}

func (e *errRecorder) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && e.err == nil {
		e.err = err
	}
	return n, err
}
