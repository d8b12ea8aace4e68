package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteBytes writes data to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// PNGBytes encodes a width x height PNG. Different seeds yield different
// bytes for the same dimensions.
func PNGBytes(t testing.TB, width, height int, seed uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, pattern(width, height, seed)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WritePNG writes a PNG fixture and returns its bytes.
func WritePNG(t testing.TB, path string, width, height int, seed uint8) []byte {
	t.Helper()
	data := PNGBytes(t, width, height, seed)
	WriteBytes(t, path, data)
	return data
}

// WriteJPEG writes a JPEG fixture and returns its bytes.
func WriteJPEG(t testing.TB, path string, width, height int, seed uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, pattern(width, height, seed), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	WriteBytes(t, path, buf.Bytes())
	return buf.Bytes()
}

// WriteGIF writes a GIF fixture and returns its bytes.
func WriteGIF(t testing.TB, path string, width, height int, seed uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, pattern(width, height, seed), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	WriteBytes(t, path, buf.Bytes())
	return buf.Bytes()
}

func pattern(width, height int, seed uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x) + seed, G: uint8(y) ^ seed, B: seed, A: 0xff})
		}
	}
	return img
}

// ListNames returns the sorted names of the direct entries of dir.
func ListNames(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
