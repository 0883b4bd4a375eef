package service

import (
	"crypto/sha256"
	"fmt"

	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/acpoll/crypto/field"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
	"github.com/vocdoni/acpoll/util/circomgnark"
)

// ProofVerifier checks a batch proof against the verifying key and public
// inputs prepared for it.
type ProofVerifier interface {
	Verify(vk types.HexBytes, proof []byte, inputs *poll.PublicInputs) error
}

// ShapeVerifier only checks that a proof is present and that the public
// inputs are well formed for their circuit. It does not verify the SNARK.
type ShapeVerifier struct{}

func (ShapeVerifier) Verify(vk types.HexBytes, proof []byte, inputs *poll.PublicInputs) error {
	if inputs == nil {
		return fmt.Errorf("nil public inputs")
	}
	if len(vk) == 0 {
		return fmt.Errorf("empty %s verifying key", inputs.Circuit)
	}
	if len(proof) == 0 {
		return fmt.Errorf("empty proof")
	}
	if want := inputs.Circuit.InputsLen(); len(inputs.Inputs) != want {
		return fmt.Errorf("%s circuit takes %d public inputs, got %d", inputs.Circuit, want, len(inputs.Inputs))
	}
	modulus := field.Modulus()
	for i, in := range inputs.Inputs {
		if in.BigInt().Cmp(modulus) >= 0 {
			return fmt.Errorf("public input %d is not a field element", i)
		}
	}
	return nil
}

// VerifierFunc adapts a function to the ProofVerifier interface.
type VerifierFunc func(vk types.HexBytes, proof []byte, inputs *poll.PublicInputs) error

func (f VerifierFunc) Verify(vk types.HexBytes, proof []byte, inputs *poll.PublicInputs) error {
	return f(vk, proof, inputs)
}

// CircomVerifier verifies Groth16 proofs over BN254 in the snarkjs format:
// verifying keys are verification_key.json documents and proofs are
// proof.json documents. Converted keys are cached by content hash.
type CircomVerifier struct {
	keys *lru.Cache[[sha256.Size]byte, *groth16_bn254.VerifyingKey]
}

// NewCircomVerifier returns a verifier caching up to cacheSize converted
// verifying keys.
func NewCircomVerifier(cacheSize int) (*CircomVerifier, error) {
	keys, err := lru.New[[sha256.Size]byte, *groth16_bn254.VerifyingKey](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("verifying key cache: %w", err)
	}
	return &CircomVerifier{keys: keys}, nil
}

func (v *CircomVerifier) Verify(vk types.HexBytes, proof []byte, inputs *poll.PublicInputs) error {
	if err := (ShapeVerifier{}).Verify(vk, proof, inputs); err != nil {
		return err
	}
	gvk, err := v.verifyingKey(vk)
	if err != nil {
		return fmt.Errorf("%s verifying key: %w", inputs.Circuit, err)
	}
	p, err := circomgnark.UnmarshalCircomProofJSON(proof)
	if err != nil {
		return err
	}
	return circomgnark.Verify(gvk, p, inputs.BigInts())
}

func (v *CircomVerifier) verifyingKey(data []byte) (*groth16_bn254.VerifyingKey, error) {
	sum := sha256.Sum256(data)
	if gvk, ok := v.keys.Get(sum); ok {
		return gvk, nil
	}
	vk, err := circomgnark.UnmarshalCircomVerificationKeyJSON(data)
	if err != nil {
		return nil, err
	}
	gvk, err := vk.ToGnark()
	if err != nil {
		return nil, err
	}
	v.keys.Add(sum, gvk)
	return gvk, nil
}
