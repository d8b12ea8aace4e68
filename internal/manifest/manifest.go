package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is the metadata recorded for one unique content item.
type Entry struct {
	Hash       string    `yaml:"hash"`
	Format     string    `yaml:"format"`
	Size       int64     `yaml:"size"`
	Width      int       `yaml:"width"`
	Height     int       `yaml:"height"`
	RecordedAt time.Time `yaml:"recorded_at"`
}

// FileName returns the canonical destination name for the entry.
func (e Entry) FileName() string {
	return CanonicalName(e.Hash, e.Format)
}

// CanonicalName builds "<hash>.<format>" using the format tag as recorded,
// so the name and the entry always agree.
func CanonicalName(hash, format string) string {
	return hash + "." + format
}

// Manifest maps content hash to Entry. A Manifest is owned by a single
// goroutine; it carries no locking.
type Manifest struct {
	entries map[string]Entry
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{entries: make(map[string]Entry)}
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// Has reports whether hash is recorded.
func (m *Manifest) Has(hash string) bool {
	_, ok := m.entries[hash]
	return ok
}

// Get returns the entry for hash.
func (m *Manifest) Get(hash string) (Entry, bool) {
	entry, ok := m.entries[hash]
	return entry, ok
}

// Put inserts or overwrites the entry keyed by its own hash.
func (m *Manifest) Put(entry Entry) error {
	if strings.TrimSpace(entry.Hash) == "" {
		return errors.New("manifest entry without hash")
	}
	if entry.Format == "" {
		return fmt.Errorf("manifest entry %s without format", entry.Hash)
	}
	m.entries[entry.Hash] = entry
	return nil
}

// Entries returns all entries sorted by hash.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// TotalBytes sums the recorded file sizes.
func (m *Manifest) TotalBytes() int64 {
	var total int64
	for _, entry := range m.entries {
		total += entry.Size
	}
	return total
}

// Hashes returns the recorded hashes in sorted order.
func (m *Manifest) Hashes() []string {
	hashes := make([]string, 0, len(m.entries))
	for hash := range m.entries {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes
}

// Marshal serializes the manifest as YAML. Keys are emitted in sorted order,
// so equal manifests always produce identical bytes.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	entries := m.entries
	if entries == nil {
		entries = map[string]Entry{}
	}
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// errKeyMismatch marks a document whose key and entry hash disagree.
var errKeyMismatch = errors.New("key does not match entry hash")

// Unmarshal parses a serialized manifest and enforces that each key equals
// its entry's hash.
func Unmarshal(data []byte) (*Manifest, error) {
	raw := map[string]Entry{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m := New()
	for key, entry := range raw {
		if key != entry.Hash {
			return nil, fmt.Errorf("%w: key %q, hash %q", errKeyMismatch, key, entry.Hash)
		}
		if err := m.Put(entry); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
	}
	return m, nil
}
