package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
)

// chunkSize is the read buffer used by FromReader. Memory use stays at one
// chunk plus the hash state no matter how large the input is.
const chunkSize = 32 * 1024

var (
	// ErrStreamFailed is returned when the input could not be read to the end.
	ErrStreamFailed = errors.New("Failed to process file stream")
	// ErrSpent is returned when an accumulator is used after Finish.
	ErrSpent = errors.New("digest accumulator already finished")
)

// Digest is the result of hashing a complete byte stream.
type Digest struct {
	Hash string
	Size int64
}

// Accumulator computes a SHA-1 digest and byte count over a sequence of chunks.
// It is single-use: once Finish is called it rejects further input.
type Accumulator struct {
	h     hash.Hash
	size  int64
	spent bool
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{h: sha1.New()}
}

// Write feeds one chunk into the running hash. Zero-length chunks are allowed.
func (a *Accumulator) Write(chunk []byte) (int, error) {
	if a.spent {
		return 0, ErrSpent
	}
	a.h.Write(chunk) //nolint:errcheck // hash.Hash.Write never errors
	a.size += int64(len(chunk))
	return len(chunk), nil
}

// Size returns the number of bytes written so far.
func (a *Accumulator) Size() int64 { return a.size }

// Finish returns the lowercase hex digest and total size and spends the accumulator.
func (a *Accumulator) Finish() (Digest, error) {
	if a.spent {
		return Digest{}, ErrSpent
	}
	a.spent = true
	return Digest{
		Hash: hex.EncodeToString(a.h.Sum(nil)),
		Size: a.size,
	}, nil
}

// FromReader drains r through a fresh accumulator.
// A read error discards everything hashed so far and returns an error
// matching ErrStreamFailed that also wraps the cause.
func FromReader(r io.Reader) (Digest, error) {
	acc := New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			acc.Write(buf[:n]) //nolint:errcheck
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, fmt.Errorf("%w: %w", ErrStreamFailed, err)
		}
	}
	return acc.Finish()
}
