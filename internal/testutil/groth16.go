package testutil

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/util/circomgnark"
)

// sumCircuit binds every public input through their sum, which is the
// only private witness.
type sumCircuit struct {
	Inputs []frontend.Variable `gnark:",public"`
	Sum    frontend.Variable
}

func (c *sumCircuit) Define(api frontend.API) error {
	sum := frontend.Variable(0)
	for _, in := range c.Inputs {
		sum = api.Add(sum, in)
	}
	api.AssertIsEqual(sum, c.Sum)
	return nil
}

// Groth16Prover produces real BN254 Groth16 proofs, encoded as snarkjs JSON,
// for a toy circuit taking a fixed number of public inputs.
type Groth16Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewGroth16Prover compiles the toy circuit for nPublic inputs and runs a
// throwaway setup.
func NewGroth16Prover(tb testing.TB, nPublic int) *Groth16Prover {
	c := qt.New(tb)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder,
		&sumCircuit{Inputs: make([]frontend.Variable, nPublic)})
	c.Assert(err, qt.IsNil)
	pk, vk, err := groth16.Setup(ccs)
	c.Assert(err, qt.IsNil)
	return &Groth16Prover{ccs: ccs, pk: pk, vk: vk}
}

// VerifyKey returns the verifying key as a snarkjs verification_key.json.
func (p *Groth16Prover) VerifyKey(tb testing.TB) []byte {
	data, err := circomgnark.FromGnarkVerifyingKey(p.vk.(*groth16_bn254.VerifyingKey)).MarshalIndentJSON()
	qt.New(tb).Assert(err, qt.IsNil)
	return data
}

// Prove returns a snarkjs proof.json for the given public inputs.
func (p *Groth16Prover) Prove(tb testing.TB, inputs []*big.Int) []byte {
	c := qt.New(tb)
	assignment := &sumCircuit{Inputs: make([]frontend.Variable, len(inputs))}
	sum := new(big.Int)
	for i, in := range inputs {
		assignment.Inputs[i] = in
		sum.Add(sum, in)
	}
	assignment.Sum = sum.Mod(sum, fr.Modulus())
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	c.Assert(err, qt.IsNil)
	proof, err := groth16.Prove(p.ccs, p.pk, w)
	c.Assert(err, qt.IsNil)
	data, err := circomgnark.FromGnarkProof(proof.(*groth16_bn254.Proof)).MarshalIndentJSON()
	c.Assert(err, qt.IsNil)
	return data
}
