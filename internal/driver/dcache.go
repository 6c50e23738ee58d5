package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Digest keys cache entries by document content.
type Digest = [sha256.Size]byte

// Schema version; increment when DiskPayload changes shape.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores per-document analysis results keyed by content hash.
// Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedNote is a recorded secondary note.
type CachedNote struct {
	StartByte uint32
	EndByte   uint32
	Message   string
}

// CachedDiag is one recorded diagnostic. Spans are stored as byte
// offsets into the recorded source and rebased on restore.
type CachedDiag struct {
	Severity  uint8
	Code      uint16
	StartByte uint32
	EndByte   uint32
	Message   string
	Notes     []CachedNote
}

// DiskPayload is the cached analysis of one document. The source text
// travels with the diagnostics so a hit can still render context lines.
type DiskPayload struct {
	Schema    uint16
	Path      string
	Source    string
	Truncated bool
	Diags     []CachedDiag
}

// OpenDiskCache initializes a disk cache at the standard location
// (XDG_CACHE_HOME or ~/.cache) under the given application name.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt initializes a disk cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// A subdirectory keeps the cache root cleanable.
	return filepath.Join(c.dir, "docs", hexKey+".mp")
}

// Put serializes and atomically writes a payload.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload. The boolean reports a usable
// hit; a missing entry or a schema mismatch is a miss, not an error.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}
