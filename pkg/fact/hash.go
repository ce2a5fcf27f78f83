package fact

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the deterministic digest over fact's canonical form.
func Hash(f Fact) ([]byte, error) {
	canon, err := Canonicalize(f)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canon)
	return sum[:], nil
}

// ReferenceOf computes the (type, hash) pair naming fact. The hash is
// hex-encoded so References can be used as map keys and round-trip
// through JSON without additional encoding.
func ReferenceOf(f Fact) (Reference, error) {
	h, err := Hash(f)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Type: f.Type, Hash: hex.EncodeToString(h)}, nil
}
