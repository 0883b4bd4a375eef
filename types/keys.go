package types

import (
	"fmt"

	"github.com/iden3/go-iden3-crypto/babyjub"
)

// PublicKey is a BabyJubJub curve point given by its two coordinates.
type PublicKey struct {
	X HashBytes `json:"x" cbor:"0,keyasint"`
	Y HashBytes `json:"y" cbor:"1,keyasint"`
}

// PublicKeyFromPoint builds a PublicKey from a babyjub point.
func PublicKeyFromPoint(p *babyjub.Point) PublicKey {
	return PublicKey{
		X: HashBytesFromBigInt(p.X),
		Y: HashBytesFromBigInt(p.Y),
	}
}

// Point returns the key as a babyjub point.
func (pk PublicKey) Point() *babyjub.Point {
	return &babyjub.Point{X: pk.X.BigInt(), Y: pk.Y.BigInt()}
}

// Validate checks that the key is a point of the BabyJubJub prime order
// subgroup.
func (pk PublicKey) Validate() error {
	p := pk.Point()
	if !p.InCurve() {
		return fmt.Errorf("public key %s,%s is not on the curve", pk.X, pk.Y)
	}
	if !p.InSubGroup() {
		return fmt.Errorf("public key %s,%s is not in the prime order subgroup", pk.X, pk.Y)
	}
	return nil
}

// VerifyKey holds the serialized verifying keys of the two circuits a
// coordinator proves against.
type VerifyKey struct {
	Process HexBytes `json:"process" cbor:"0,keyasint"`
	Tally   HexBytes `json:"tally" cbor:"1,keyasint"`
}

// Len returns the total length of both serialized keys.
func (vk VerifyKey) Len() int {
	return len(vk.Process) + len(vk.Tally)
}

// Coordinator is the key material of an account allowed to run polls.
type Coordinator struct {
	PublicKey PublicKey `json:"publicKey" cbor:"0,keyasint"`
	VerifyKey VerifyKey `json:"verifyKey" cbor:"1,keyasint"`
}
