package debuginfod

import (
	"encoding/hex"
	"strings"
)

// BuildID is the raw-byte form of a GNU build ID. The native ABI takes the
// ID as bytes plus a length, never as hex text, so both constructors
// normalize to bytes up front.
type BuildID struct {
	raw []byte
}

// ParseBuildID decodes a hex build ID string, case-insensitively. Odd
// length or non-hex input fails with InvalidBuildIDError.
func ParseBuildID(s string) (BuildID, error) {
	if s == "" {
		return BuildID{}, &InvalidBuildIDError{Input: s, Reason: "empty"}
	}
	raw, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return BuildID{}, &InvalidBuildIDError{Input: s, Reason: err.Error()}
	}
	return BuildID{raw: raw}, nil
}

// RawBuildID wraps an already-decoded build ID. The bytes are copied so the
// caller's slice stays independent of the client.
func RawBuildID(b []byte) BuildID {
	raw := make([]byte, len(b))
	copy(raw, b)
	return BuildID{raw: raw}
}

func (id BuildID) Empty() bool { return len(id.raw) == 0 }

// Bytes returns a copy of the raw ID bytes.
func (id BuildID) Bytes() []byte {
	b := make([]byte, len(id.raw))
	copy(b, id.raw)
	return b
}

// String renders the ID as lowercase hex, the form debuginfod servers use
// in request paths.
func (id BuildID) String() string {
	return hex.EncodeToString(id.raw)
}
