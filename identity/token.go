package identity

import (
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// seedSeparator joins seed components. The ASCII unit separator cannot
// appear in validated components, so distinct component lists can never
// collapse into the same composite seed.
const seedSeparator = "\x1f"

// Digest size floors keep short requested lengths from weakening the hash.
const (
	minCompactDigestSize = 10
	minURLSafeDigestSize = 16
	maxDigestSize        = 64
)

var compactEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// CompactToken derives a deterministic token over the lowercase base32
// alphabet [a-z2-7], suitable wherever a strict lowercase identifier
// alphabet is required.
//
// The token is a pure function of (seed, namespace, length): the same
// inputs produce the same token in every process on every platform. The
// namespace partitions token spaces so identical seeds hashed for
// unrelated purposes can never collide; pass "" to omit it. A namespace
// that is provided but blank is rejected rather than silently ignored.
func CompactToken(seed string, length int, namespace string) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("%w: token length must be >= 1, got %d", ErrInvalidConfiguration, length)
	}

	content, err := composeContent(seed, namespace)
	if err != nil {
		return "", err
	}

	digestSize := (length*5 + 7) / 8
	if digestSize < minCompactDigestSize {
		digestSize = minCompactDigestSize
	}
	raw, err := digest(content, digestSize)
	if err != nil {
		return "", err
	}

	encoded := strings.ToLower(compactEncoding.EncodeToString(raw))
	return encoded[:length], nil
}

// URLSafeToken derives a deterministic token over the base64url alphabet
// [A-Za-z0-9-_], denser than CompactToken when mixed case is acceptable.
func URLSafeToken(seed string, length int, namespace string) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("%w: token length must be >= 1, got %d", ErrInvalidConfiguration, length)
	}

	content, err := composeContent(seed, namespace)
	if err != nil {
		return "", err
	}

	digestSize := (length*3 + 3) / 4
	if digestSize < minURLSafeDigestSize {
		digestSize = minURLSafeDigestSize
	}
	raw, err := digest(content, digestSize)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}

// composeContent validates and joins the hash input. An empty namespace
// string means "no namespace"; a blank one is a caller mistake.
func composeContent(seed, namespace string) (string, error) {
	trimmed := strings.TrimSpace(seed)
	if trimmed == "" {
		return "", fmt.Errorf("%w: seed must be a non-empty string", ErrInvalidConfiguration)
	}
	if namespace == "" {
		return trimmed, nil
	}
	ns := strings.TrimSpace(namespace)
	if ns == "" {
		return "", fmt.Errorf("%w: namespace must be non-empty when provided", ErrInvalidConfiguration)
	}
	return ns + seedSeparator + trimmed, nil
}

// digest computes a keyless BLAKE2b digest of the given size.
func digest(content string, size int) ([]byte, error) {
	if size > maxDigestSize {
		return nil, fmt.Errorf("%w: requested length needs a %d-byte digest, maximum is %d",
			ErrInvalidConfiguration, size, maxDigestSize)
	}
	h, err := blake2b.New(size, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing digest: %w", err)
	}
	h.Write([]byte(content))
	return h.Sum(nil), nil
}
