package noise

import (
	"encoding/binary"

	"github.com/minio/sha256-simd"
)

// hashTo32 reduces an arbitrary-length public key to the 32 bytes a
// PeerID needs.
func hashTo32(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// deterministicReader expands a fixed seed into an arbitrarily long
// byte stream via counter-mode SHA-256, so the same identity key always
// produces the same Noise static key pair.
type deterministicReader struct {
	seed    []byte
	counter uint64
	buf     []byte
}

func newDeterministicReader(seed []byte) *deterministicReader {
	return &deterministicReader{seed: seed}
}

func (r *deterministicReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.buf) == 0 {
			var ctr [8]byte
			binary.BigEndian.PutUint64(ctr[:], r.counter)
			r.counter++
			h := sha256.New()
			h.Write(r.seed)
			h.Write(ctr[:])
			r.buf = h.Sum(nil)
		}
		c := copy(p[n:], r.buf)
		r.buf = r.buf[c:]
		n += c
	}
	return n, nil
}
