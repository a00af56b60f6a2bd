package fs

import (
	"encoding/base64"
	"encoding/binary"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// DefaultMemoSize bounds the number of file digests kept in memory.
const DefaultMemoSize = 8192

// Hasher computes xxhash content digests encoded as base64.
//
// File digests are memoized by path, size and modification time, so a dependency shared by many
// files is read from disk once per build.
type Hasher struct {
	memo *lru.Cache[string, string]
}

// NewHasher creates a new Hasher keeping up to size file digests.
func NewHasher(size int) (*Hasher, error) {
	if size <= 0 {
		size = DefaultMemoSize
	}
	memo, err := lru.New[string, string](size)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create hash memo")
	}
	return &Hasher{memo: memo}, nil
}

// CalcHash returns the base64 encoded xxhash of data.
func (h *Hasher) CalcHash(data []byte) string {
	return encode(xxhash.Sum64(data))
}

// HashFile computes the digest of a file's content.
func (h *Hasher) HashFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}

	key := memoKey(path, info)
	if sum, ok := h.memo.Get(key); ok {
		return sum, nil
	}

	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	digest := xxhash.New()
	if _, err := io.Copy(digest, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	sum := encode(digest.Sum64())
	h.memo.Add(key, sum)
	return sum, nil
}

// Forget drops the memoized digest of path. The watcher calls it for every changed file.
func (h *Hasher) Forget(path string) {
	for _, key := range h.memo.Keys() {
		if len(key) > len(path) && key[:len(path)] == path && key[len(path)] == 0 {
			h.memo.Remove(key)
		}
	}
}

func memoKey(path string, info os.FileInfo) string {
	return path + "\x00" + strconv.FormatInt(info.Size(), 10) + "\x00" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}

func encode(sum uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return base64.StdEncoding.EncodeToString(buf[:])
}
