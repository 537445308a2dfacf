package pipeline

import (
	"context"
	"crypto/sha256"
	"math/big"
	"regexp"
	"strings"

	"github.com/nao1215/darklight/internal/tor"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Legacy P2PKH/P2SH and bech32 segwit addresses.
	bitcoinLegacyPattern = regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`)
	bitcoinBech32Pattern = regexp.MustCompile(`\bbc1[a-z0-9]{39,59}\b`)
)

// assetSuffixes are "TLDs" produced by retina image names like logo@2x.png.
var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

type emailStage struct{ extractStage }

func (s *emailStage) Name() string { return StageEmail }
func (s *emailStage) Active() bool { return s.active() }

func (s *emailStage) Handle(ctx context.Context) error {
	return s.record(ctx, StageEmail, ExtractEmails(s.in.Page().Source), certain)
}

// ExtractEmails returns the distinct, lowercased e-mail addresses in text.
func ExtractEmails(text string) []string {
	seen := make(map[string]bool)
	emails := make([]string, 0)
	for _, m := range emailPattern.FindAllString(text, -1) {
		m = strings.ToLower(m)
		if seen[m] || hasAssetSuffix(m) {
			continue
		}
		seen[m] = true
		emails = append(emails, m)
	}
	return emails
}

func hasAssetSuffix(s string) bool {
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

type bitcoinStage struct{ extractStage }

func (s *bitcoinStage) Name() string { return StageBitcoin }
func (s *bitcoinStage) Active() bool { return s.active() }

func (s *bitcoinStage) Handle(ctx context.Context) error {
	return s.record(ctx, StageBitcoin, ExtractBitcoinAddresses(s.in.Page().Source), bitcoinConfidence)
}

// ExtractBitcoinAddresses returns the distinct Bitcoin addresses in text.
// Legacy addresses must pass their Base58Check checksum; bech32 addresses
// are matched by shape only.
func ExtractBitcoinAddresses(text string) []string {
	seen := make(map[string]bool)
	addrs := make([]string, 0)
	add := func(a string) {
		if !seen[a] {
			seen[a] = true
			addrs = append(addrs, a)
		}
	}
	for _, m := range bitcoinLegacyPattern.FindAllString(text, -1) {
		if validBase58Check(m) {
			add(m)
		}
	}
	for _, m := range bitcoinBech32Pattern.FindAllString(text, -1) {
		add(m)
	}
	return addrs
}

func bitcoinConfidence(addr string) float64 {
	if strings.HasPrefix(addr, "bc1") {
		return 0.9
	}
	return 1
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// validBase58Check reports whether s decodes to a 25-byte payload whose
// last four bytes are the double SHA-256 checksum of the rest.
func validBase58Check(s string) bool {
	n := new(big.Int)
	radix := big.NewInt(58)
	for _, c := range s {
		idx := strings.IndexRune(base58Alphabet, c)
		if idx < 0 {
			return false
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(idx)))
	}

	body := n.Bytes()
	// Each leading '1' encodes a leading zero byte.
	zeros := len(s) - len(strings.TrimLeft(s, "1"))
	decoded := make([]byte, zeros+len(body))
	copy(decoded[zeros:], body)
	if len(decoded) != 25 {
		return false
	}

	first := sha256.Sum256(decoded[:21])
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if decoded[21+i] != second[i] {
			return false
		}
	}
	return true
}

type onionStage struct{ extractStage }

func (s *onionStage) Name() string { return StageOnion }
func (s *onionStage) Active() bool { return s.active() }

// Handle records onion services mentioned on the page other than its own.
func (s *onionStage) Handle(ctx context.Context) error {
	own := strings.ToLower(s.domain())
	if i := strings.LastIndexByte(own, ':'); i != -1 {
		own = own[:i]
	}

	mentioned := make([]string, 0)
	for _, addr := range tor.ExtractV3Addresses(s.in.Page().Source) {
		if addr != own {
			mentioned = append(mentioned, addr)
		}
	}
	return s.record(ctx, StageOnion, mentioned, certain)
}

type mirrorStage struct {
	extractStage
	index MirrorIndex
}

func (s *mirrorStage) Name() string { return StageMirror }

func (s *mirrorStage) Active() bool {
	return s.index != nil && s.active() && s.domain() != ""
}

// Handle records every other domain that served a page with the same
// fingerprint.
func (s *mirrorStage) Handle(ctx context.Context) error {
	others, err := s.index.Add(ctx, s.in.Page().Fingerprint(), s.domain())
	if err != nil {
		return err
	}
	return s.record(ctx, StageMirror, others, certain)
}
