package seed

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// #region constants

// Version tags the seed-input layout and hash algorithm. Any change to either
// must bump it; it travels with every exported digest.
const Version = "sha256/v1"

const (
	fieldSep = "|"
	escape   = `\`
)

// #endregion constants

// #region compose

// ComposeSeedInput builds the canonical seed string:
//
//	missionID | timestamp | len(modules) | module... | contributorID
//
// Every component has '\' and '|' backslash-escaped and the module count is
// explicit, so distinct tuples never collide. Module order is preserved.
func ComposeSeedInput(missionID string, timestamp int64, modules []string, contributorID string) string {
	var b strings.Builder
	b.WriteString(escapeField(missionID))
	b.WriteString(fieldSep)
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString(fieldSep)
	b.WriteString(strconv.Itoa(len(modules)))
	for _, m := range modules {
		b.WriteString(fieldSep)
		b.WriteString(escapeField(m))
	}
	b.WriteString(fieldSep)
	b.WriteString(escapeField(contributorID))
	return b.String()
}

// #endregion compose

// #region digest

// Digest returns the lowercase hex SHA-256 of seedInput.
func Digest(seedInput string) string {
	sum := sha256.Sum256([]byte(seedInput))
	return hex.EncodeToString(sum[:])
}

// MissionDigest is Digest(ComposeSeedInput(...)).
func MissionDigest(missionID string, timestamp int64, modules []string, contributorID string) string {
	return Digest(ComposeSeedInput(missionID, timestamp, modules, contributorID))
}

// #endregion digest

// #region signed-seed

// SignedSeed pairs a digest with an opaque signature from an external signer.
type SignedSeed struct {
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
	Version   string `json:"version"`
}

// Pair attaches signature to digest. The signature is not inspected.
func Pair(digest, signature string) SignedSeed {
	return SignedSeed{Digest: digest, Signature: signature, Version: Version}
}

// String renders digest and signature joined by '.', or the bare digest when unsigned.
func (s SignedSeed) String() string {
	if s.Signature == "" {
		return s.Digest
	}
	return s.Digest + "." + s.Signature
}

// #endregion signed-seed

// #region helpers

func escapeField(s string) string {
	if !strings.ContainsAny(s, escape+fieldSep) {
		return s
	}
	s = strings.ReplaceAll(s, escape, escape+escape)
	return strings.ReplaceAll(s, fieldSep, escape+fieldSep)
}

// #endregion helpers
