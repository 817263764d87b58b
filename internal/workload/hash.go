package workload

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// HashPrefixLength is the number of characters of the final text reported.
const HashPrefixLength = 32

// Digest names a fixed-width cryptographic digest.
type Digest string

// Supported digests.
const (
	DigestSHA256     Digest = "sha256"
	DigestSHA3_256   Digest = "sha3-256"
	DigestBLAKE2b256 Digest = "blake2b-256"
)

// ErrUnknownDigest is returned when a digest name has no implementation.
var ErrUnknownDigest = errors.New("hashing primitive unavailable")

// Valid reports whether d names a supported digest.
func (d Digest) Valid() bool {
	_, err := d.sum()
	return err == nil
}

func (d Digest) sum() (func([]byte) []byte, error) {
	switch d {
	case DigestSHA256, "":
		return func(b []byte) []byte {
			s := sha256.Sum256(b)
			return s[:]
		}, nil
	case DigestSHA3_256:
		return func(b []byte) []byte {
			s := sha3.Sum256(b)
			return s[:]
		}, nil
	case DigestBLAKE2b256:
		return func(b []byte) []byte {
			s := blake2b.Sum256(b)
			return s[:]
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDigest, string(d))
	}
}

// HashResult summarises an iterated hash chain.
type HashResult struct {
	Iterations int
	FinalHash  string
	Duration   time.Duration
}

// Seed builds the starting message for a hash chain.
func Seed(prefix string, now time.Time) string {
	return prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// HashChain feeds each digest, base64 encoded, back in as the next message.
// With no iterations the digest of the seed itself is reported.
func HashChain(seed string, iterations int, digest Digest) (HashResult, error) {
	start := time.Now()

	sum, err := digest.sum()
	if err != nil {
		return HashResult{}, err
	}

	data := seed
	for i := 0; i < iterations; i++ {
		data = base64.StdEncoding.EncodeToString(sum([]byte(data)))
	}
	if iterations <= 0 {
		data = base64.StdEncoding.EncodeToString(sum([]byte(seed)))
	}

	return HashResult{
		Iterations: iterations,
		FinalHash:  data[:HashPrefixLength],
		Duration:   time.Since(start),
	}, nil
}
