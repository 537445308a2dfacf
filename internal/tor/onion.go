package tor

import (
	"encoding/base32"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// OnionSuffix is the top-level label of hidden service hosts.
const OnionSuffix = ".onion"

// onionV3Version is the trailing version byte of a v3 address.
const onionV3Version = 0x03

// ErrInvalidPublicKey is returned by AddressFromPublicKey for keys that are not 32 bytes.
var ErrInvalidPublicKey = errors.New("ed25519 public key must be 32 bytes")

var (
	onionV3Pattern        = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV3ContentPattern = regexp.MustCompile(`[a-z2-7]{56}\.onion`)
	checksumPrefix        = []byte(".onion checksum")
)

// IsValidV3Address reports whether address is a v3 onion host with a correct
// checksum. Case is ignored.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	// pubkey (32) | checksum (2) | version (1)
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}
	want := v3Checksum(pubkey, version)
	return checksum[0] == want[0] && checksum[1] == want[1]
}

// v3Checksum is the first two bytes of SHA3-256(".onion checksum" | pubkey | version).
func v3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return sum[:2]
}

// IsOnionHost reports whether host (optionally with a port) is under .onion.
func IsOnionHost(host string) bool {
	if i := strings.LastIndexByte(host, ':'); i != -1 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// ExtractV3Addresses returns the distinct, checksum-valid v3 onion hosts
// mentioned in content, in order of first appearance.
func ExtractV3Addresses(content string) []string {
	matches := onionV3ContentPattern.FindAllString(strings.ToLower(content), -1)

	seen := make(map[string]bool, len(matches))
	result := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] || !IsValidV3Address(m) {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}

// AddressFromPublicKey derives the v3 onion host of an ed25519 public key.
func AddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidPublicKey
	}

	data := make([]byte, 35)
	copy(data[:32], pubkey)
	copy(data[32:34], v3Checksum(pubkey, onionV3Version))
	data[34] = onionV3Version

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix, nil
}
