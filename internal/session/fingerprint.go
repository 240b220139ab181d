package session

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"time"
)

// Fingerprint is a cheap proxy for "which version of the dataset is active":
// the size and modification time of the backing data file at mint time.
// Tokens embed it and are only honored while it still matches.
type Fingerprint struct {
	Size    int64 `json:"size"`
	ModTime int64 `json:"mtime"`
}

// Source yields the current fingerprint of the live dataset.
type Source interface {
	Current() Fingerprint
}

// FileSource stats path on every call. A replaced or restored data file
// changes size or mtime and invalidates every outstanding token at once.
type FileSource string

func (p FileSource) Current() Fingerprint {
	info, err := os.Stat(string(p))
	if err != nil {
		return Fingerprint{}
	}
	return Fingerprint{Size: info.Size(), ModTime: info.ModTime().Unix()}
}

// BootSource is a fingerprint fixed at process start. Used when no data file
// is configured: sessions then survive page reloads but not restarts, which
// is the safe degradation for stores without a single backing file.
type BootSource Fingerprint

// NewBootSource draws a random per-process fingerprint.
func NewBootSource() BootSource {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return BootSource{
		Size:    int64(binary.BigEndian.Uint64(buf[:]) >> 1),
		ModTime: time.Now().Unix(),
	}
}

func (b BootSource) Current() Fingerprint { return Fingerprint(b) }
