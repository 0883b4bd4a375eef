package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// ArtifactEncoding selects how records are serialized.
type ArtifactEncoding int

const (
	// ArtifactEncodingCBOR is the core deterministic CBOR encoding used for
	// every record in the database.
	ArtifactEncodingCBOR ArtifactEncoding = iota
	// ArtifactEncodingJSON is used for exports.
	ArtifactEncodingJSON
)

var cborEncMode = sync.OnceValues(func() (cbor.EncMode, error) {
	return cbor.CoreDetEncOptions().EncMode()
})

// EncodeArtifact serializes a record, with CBOR unless another encoding is
// given.
func EncodeArtifact(a any, encoding ...ArtifactEncoding) ([]byte, error) {
	enc := ArtifactEncodingCBOR
	if len(encoding) > 0 {
		enc = encoding[0]
	}
	switch enc {
	case ArtifactEncodingCBOR:
		em, err := cborEncMode()
		if err != nil {
			return nil, fmt.Errorf("encode artifact: %w", err)
		}
		return em.Marshal(a)
	case ArtifactEncodingJSON:
		return json.Marshal(a)
	default:
		return nil, fmt.Errorf("unknown artifact encoding: %d", enc)
	}
}

// DecodeArtifact deserializes a record encoded by EncodeArtifact.
func DecodeArtifact(data []byte, out any, encoding ...ArtifactEncoding) error {
	enc := ArtifactEncodingCBOR
	if len(encoding) > 0 {
		enc = encoding[0]
	}
	switch enc {
	case ArtifactEncodingCBOR:
		return cbor.Unmarshal(data, out)
	case ArtifactEncodingJSON:
		return json.Unmarshal(data, out)
	default:
		return fmt.Errorf("unknown artifact encoding: %d", enc)
	}
}
