package naming

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

const (
	DefaultAlgorithm = "sha256"
	DefaultDigest    = "hex"
)

var algorithms = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha1":   sha1.New,
	"sha512": sha512.New,
	"md5":    md5.New,
	"crc64":  func() hash.Hash { return crc64nvme.New() },
}

// base64 digests use the URL safe alphabet so names stay valid path segments
var digests = map[string]func([]byte) string{
	"hex":       hex.EncodeToString,
	"base58":    base58.Encode,
	"base64":    base64.RawURLEncoding.EncodeToString,
	"base64url": base64.RawURLEncoding.EncodeToString,
}

// Hash returns the digest of content using the named algorithm and encoding.
// Empty names select the defaults.
func Hash(algo, digest string, content []byte) (string, error) {
	if algo == "" {
		algo = DefaultAlgorithm
	}
	if digest == "" {
		digest = DefaultDigest
	}

	newHash, ok := algorithms[algo]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algo)
	}
	encode, ok := digests[digest]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDigest, digest)
	}

	h := newHash()
	h.Write(content)
	return encode(h.Sum(nil)), nil
}
