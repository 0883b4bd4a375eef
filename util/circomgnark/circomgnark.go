// Package circomgnark verifies Groth16 proofs produced by circom and snarkjs
// with the gnark BN254 backend.
package circomgnark

import (
	"errors"
	"fmt"
	"math/big"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// ErrInvalidProof is returned when the pairing check of a proof fails.
var ErrInvalidProof = errors.New("invalid proof")

// ToGnark converts the verification key and precomputes its pairing
// constants.
func (vk *CircomVerificationKey) ToGnark() (*groth16_bn254.VerifyingKey, error) {
	if len(vk.IC) != vk.NPublic+1 {
		return nil, fmt.Errorf("verification key has %d IC points for %d public inputs", len(vk.IC), vk.NPublic)
	}
	out := &groth16_bn254.VerifyingKey{}
	alpha, err := parseG1(vk.VkAlpha1)
	if err != nil {
		return nil, fmt.Errorf("vk_alpha_1: %w", err)
	}
	out.G1.Alpha = *alpha
	for name, dst := range map[string]struct {
		src [][]string
		dst *curve.G2Affine
	}{
		"vk_beta_2":  {vk.VkBeta2, &out.G2.Beta},
		"vk_gamma_2": {vk.VkGamma2, &out.G2.Gamma},
		"vk_delta_2": {vk.VkDelta2, &out.G2.Delta},
	} {
		p, err := parseG2(dst.src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		*dst.dst = *p
	}
	out.G1.K = make([]curve.G1Affine, len(vk.IC))
	for i, ic := range vk.IC {
		p, err := parseG1(ic)
		if err != nil {
			return nil, fmt.Errorf("IC[%d]: %w", i, err)
		}
		out.G1.K[i] = *p
	}
	if err := out.Precompute(); err != nil {
		return nil, fmt.Errorf("failed to precompute verification key: %w", err)
	}
	return out, nil
}

// ToGnark converts the proof. Commitments are not supported.
func (p *CircomProof) ToGnark() (*groth16_bn254.Proof, error) {
	ar, err := parseG1(p.PiA)
	if err != nil {
		return nil, fmt.Errorf("pi_a: %w", err)
	}
	bs, err := parseG2(p.PiB)
	if err != nil {
		return nil, fmt.Errorf("pi_b: %w", err)
	}
	krs, err := parseG1(p.PiC)
	if err != nil {
		return nil, fmt.Errorf("pi_c: %w", err)
	}
	return &groth16_bn254.Proof{Ar: *ar, Bs: *bs, Krs: *krs}, nil
}

// PublicWitness reduces the public signals to scalar field elements. Values
// outside the field are rejected rather than reduced.
func PublicWitness(signals []*big.Int) (fr.Vector, error) {
	w := make(fr.Vector, len(signals))
	modulus := fr.Modulus()
	for i, s := range signals {
		if s == nil || s.Sign() < 0 || s.Cmp(modulus) >= 0 {
			return nil, fmt.Errorf("public signal %d is not a field element", i)
		}
		w[i].SetBigInt(s)
	}
	return w, nil
}

// Verify checks a proof against a converted verification key.
func Verify(vk *groth16_bn254.VerifyingKey, proof *CircomProof, signals []*big.Int) error {
	if n := len(vk.G1.K) - 1; n != len(signals) {
		return fmt.Errorf("verification key takes %d public signals, got %d", n, len(signals))
	}
	gnarkProof, err := proof.ToGnark()
	if err != nil {
		return err
	}
	witness, err := PublicWitness(signals)
	if err != nil {
		return err
	}
	if err := groth16_bn254.Verify(gnarkProof, vk, witness); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}

// parseG1 reads a snarkjs G1 point [x, y, z]. Only affine points (z = 1)
// and the point at infinity (z = 0) are accepted.
func parseG1(coords []string) (*curve.G1Affine, error) {
	if len(coords) != 3 {
		return nil, fmt.Errorf("G1 point has %d coordinates", len(coords))
	}
	p := &curve.G1Affine{}
	switch coords[2] {
	case "0":
		return p, nil
	case "1":
	default:
		return nil, fmt.Errorf("G1 point is not normalized")
	}
	if err := setFp(&p.X, coords[0]); err != nil {
		return nil, err
	}
	if err := setFp(&p.Y, coords[1]); err != nil {
		return nil, err
	}
	if !p.IsOnCurve() {
		return nil, fmt.Errorf("G1 point is not on the curve")
	}
	return p, nil
}

// parseG2 reads a snarkjs G2 point [[x0, x1], [y0, y1], [z0, z1]] where each
// pair is c0 + c1*u.
func parseG2(coords [][]string) (*curve.G2Affine, error) {
	if len(coords) != 3 {
		return nil, fmt.Errorf("G2 point has %d coordinates", len(coords))
	}
	for _, c := range coords {
		if len(c) != 2 {
			return nil, fmt.Errorf("G2 coordinate has %d limbs", len(c))
		}
	}
	p := &curve.G2Affine{}
	switch {
	case coords[2][0] == "0" && coords[2][1] == "0":
		return p, nil
	case coords[2][0] == "1" && coords[2][1] == "0":
	default:
		return nil, fmt.Errorf("G2 point is not normalized")
	}
	for _, limb := range []struct {
		dst *fp.Element
		src string
	}{
		{&p.X.A0, coords[0][0]},
		{&p.X.A1, coords[0][1]},
		{&p.Y.A0, coords[1][0]},
		{&p.Y.A1, coords[1][1]},
	} {
		if err := setFp(limb.dst, limb.src); err != nil {
			return nil, err
		}
	}
	if !p.IsOnCurve() {
		return nil, fmt.Errorf("G2 point is not on the curve")
	}
	if !p.IsInSubGroup() {
		return nil, fmt.Errorf("G2 point is not in the prime order subgroup")
	}
	return p, nil
}

func setFp(dst *fp.Element, s string) error {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return fmt.Errorf("invalid coordinate %q", s)
	}
	if v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return fmt.Errorf("coordinate %q out of range", s)
	}
	dst.SetBigInt(v)
	return nil
}
