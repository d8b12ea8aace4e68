package contenthash

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// DefaultBufferSize is the chunk size used when none is configured.
const DefaultBufferSize = 20_000_000

// ErrUnknownAlgorithm is returned for algorithm names without a registered constructor.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

var constructors = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
	"blake3": func() hash.Hash { return blake3.New() },
}

// Algorithms lists the supported algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supported reports whether name is a known algorithm.
func Supported(name string) bool {
	_, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Hasher computes hex digests of file contents with a fixed algorithm.
// A Hasher is safe for concurrent use; every call allocates its own state.
type Hasher struct {
	algorithm  string
	newHash    func() hash.Hash
	bufferSize int
}

// New returns a Hasher for the named algorithm. bufferSize bounds how many
// bytes are read per chunk; values <= 0 select DefaultBufferSize.
func New(algorithm string, bufferSize int) (*Hasher, error) {
	name := strings.ToLower(strings.TrimSpace(algorithm))
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hasher{algorithm: name, newHash: ctor, bufferSize: bufferSize}, nil
}

// Algorithm returns the canonical algorithm name.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// HashFile streams the file at path through the hash function in chunks.
// On any read failure an error is returned and the digest is empty.
func (h *Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	size := h.bufferSize
	if info, err := file.Stat(); err == nil && info.Size() < int64(size) {
		// Small files get a right-sized buffer instead of the full chunk.
		size = int(info.Size()) + 1
	}

	digest, err := h.hash(file, size)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, nil
}

// HashReader hashes everything readable from r.
func (h *Hasher) HashReader(r io.Reader) (string, error) {
	return h.hash(r, h.bufferSize)
}

// HashBytes hashes an in-memory payload.
func (h *Hasher) HashBytes(data []byte) string {
	state := h.newHash()
	state.Write(data)
	return hex.EncodeToString(state.Sum(nil))
}

func (h *Hasher) hash(r io.Reader, bufferSize int) (string, error) {
	state := h.newHash()
	buf := make([]byte, bufferSize)
	// io.CopyBuffer would bypass buf when r implements WriterTo (as *os.File
	// does), so read explicitly to keep the chunk bound.
	for {
		n, err := r.Read(buf)
		if n > 0 {
			state.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(state.Sum(nil)), nil
}
