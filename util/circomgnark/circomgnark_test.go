package circomgnark_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/internal/testutil"
	"github.com/vocdoni/acpoll/util/circomgnark"
)

func TestVerify(t *testing.T) {
	c := qt.New(t)
	prover := testutil.NewGroth16Prover(c, 3)
	inputs := []*big.Int{big.NewInt(7), big.NewInt(11), new(big.Int).Sub(fr.Modulus(), big.NewInt(1))}

	vk, err := circomgnark.UnmarshalCircomVerificationKeyJSON(prover.VerifyKey(c))
	c.Assert(err, qt.IsNil)
	c.Assert(vk.NPublic, qt.Equals, 3)
	gvk, err := vk.ToGnark()
	c.Assert(err, qt.IsNil)

	proof, err := circomgnark.UnmarshalCircomProofJSON(prover.Prove(c, inputs))
	c.Assert(err, qt.IsNil)
	c.Assert(circomgnark.Verify(gvk, proof, inputs), qt.IsNil)

	c.Run("wrong inputs", func(c *qt.C) {
		wrong := []*big.Int{big.NewInt(8), inputs[1], inputs[2]}
		c.Assert(circomgnark.Verify(gvk, proof, wrong), qt.ErrorIs, circomgnark.ErrInvalidProof)
	})
	c.Run("input count", func(c *qt.C) {
		c.Assert(circomgnark.Verify(gvk, proof, inputs[:2]), qt.ErrorMatches,
			"verification key takes 3 public signals, got 2")
	})
	c.Run("input out of field", func(c *qt.C) {
		out := []*big.Int{inputs[0], inputs[1], fr.Modulus()}
		c.Assert(circomgnark.Verify(gvk, proof, out), qt.ErrorMatches,
			"public signal 2 is not a field element")
	})
	c.Run("point off curve", func(c *qt.C) {
		bad := *proof
		bad.PiA = []string{proof.PiA[0], "5", "1"}
		c.Assert(circomgnark.Verify(gvk, &bad, inputs), qt.ErrorMatches, "pi_a: G1 point is not on the curve")
	})
	c.Run("projective point", func(c *qt.C) {
		bad := *proof
		bad.PiC = []string{proof.PiC[0], proof.PiC[1], "2"}
		c.Assert(circomgnark.Verify(gvk, &bad, inputs), qt.ErrorMatches, "pi_c: G1 point is not normalized")
	})
}

func TestUnmarshalVerificationKey(t *testing.T) {
	c := qt.New(t)

	_, err := circomgnark.UnmarshalCircomVerificationKeyJSON([]byte(`{"protocol":"plonk"}`))
	c.Assert(err, qt.ErrorMatches, `unsupported verification key protocol "plonk"`)
	_, err = circomgnark.UnmarshalCircomVerificationKeyJSON([]byte(`{"protocol":"groth16","curve":"bls12381"}`))
	c.Assert(err, qt.ErrorMatches, `unsupported verification key curve "bls12381"`)
	_, err = circomgnark.UnmarshalCircomProofJSON([]byte(`[]`))
	c.Assert(err, qt.ErrorMatches, "failed to parse proof JSON: .*")

	prover := testutil.NewGroth16Prover(c, 2)
	var raw map[string]any
	c.Assert(json.Unmarshal(prover.VerifyKey(c), &raw), qt.IsNil)
	raw["IC"] = raw["IC"].([]any)[:2]
	data, err := json.Marshal(raw)
	c.Assert(err, qt.IsNil)
	vk, err := circomgnark.UnmarshalCircomVerificationKeyJSON(data)
	c.Assert(err, qt.IsNil)
	_, err = vk.ToGnark()
	c.Assert(err, qt.ErrorMatches, "verification key has 2 IC points for 2 public inputs")
}
