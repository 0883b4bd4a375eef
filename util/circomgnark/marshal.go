package circomgnark

import (
	"encoding/json"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// FromGnarkProof encodes a gnark proof the way snarkjs writes it, so
// coordinators proving with gnark can submit it to the same verifier.
func FromGnarkProof(p *groth16_bn254.Proof) *CircomProof {
	return &CircomProof{
		PiA:      g1Strings(&p.Ar),
		PiB:      g2Strings(&p.Bs),
		PiC:      g1Strings(&p.Krs),
		Protocol: protocolGroth16,
		Curve:    curveBN128,
	}
}

// FromGnarkVerifyingKey encodes a gnark verifying key as a snarkjs
// verification key.
func FromGnarkVerifyingKey(vk *groth16_bn254.VerifyingKey) *CircomVerificationKey {
	out := &CircomVerificationKey{
		Protocol: protocolGroth16,
		Curve:    curveBN128,
		NPublic:  len(vk.G1.K) - 1,
		VkAlpha1: g1Strings(&vk.G1.Alpha),
		VkBeta2:  g2Strings(&vk.G2.Beta),
		VkGamma2: g2Strings(&vk.G2.Gamma),
		VkDelta2: g2Strings(&vk.G2.Delta),
		IC:       make([][]string, len(vk.G1.K)),
	}
	for i := range vk.G1.K {
		out.IC[i] = g1Strings(&vk.G1.K[i])
	}
	return out
}

// MarshalIndentJSON encodes the proof with snarkjs indentation.
func (p *CircomProof) MarshalIndentJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// MarshalIndentJSON encodes the key with snarkjs indentation.
func (vk *CircomVerificationKey) MarshalIndentJSON() ([]byte, error) {
	return json.MarshalIndent(vk, "", "  ")
}

func g1Strings(p *curve.G1Affine) []string {
	if p.IsInfinity() {
		return []string{"0", "1", "0"}
	}
	return []string{p.X.String(), p.Y.String(), "1"}
}

func g2Strings(p *curve.G2Affine) [][]string {
	if p.IsInfinity() {
		return [][]string{{"0", "0"}, {"1", "0"}, {"0", "0"}}
	}
	return [][]string{
		{p.X.A0.String(), p.X.A1.String()},
		{p.Y.A0.String(), p.Y.A1.String()},
		{"1", "0"},
	}
}
