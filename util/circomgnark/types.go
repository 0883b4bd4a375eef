package circomgnark

import (
	"encoding/json"
	"fmt"
)

// CircomProof is a Groth16 proof as written by snarkjs. Points are given in
// projective coordinates as decimal strings.
type CircomProof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve,omitempty"`
}

// CircomVerificationKey is a Groth16 verification key as exported by
// snarkjs.
type CircomVerificationKey struct {
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
	NPublic  int        `json:"nPublic"`
	VkAlpha1 []string   `json:"vk_alpha_1"`
	VkBeta2  [][]string `json:"vk_beta_2"`
	VkGamma2 [][]string `json:"vk_gamma_2"`
	VkDelta2 [][]string `json:"vk_delta_2"`
	IC       [][]string `json:"IC"`
	// Unused by the verifier, kept so keys round trip.
	VkAlphabeta12 [][][]string `json:"vk_alphabeta_12,omitempty"`
}

const (
	protocolGroth16 = "groth16"
	curveBN128      = "bn128"
)

// UnmarshalCircomProofJSON parses a snarkjs proof.json.
func UnmarshalCircomProofJSON(data []byte) (*CircomProof, error) {
	proof := &CircomProof{}
	if err := json.Unmarshal(data, proof); err != nil {
		return nil, fmt.Errorf("failed to parse proof JSON: %w", err)
	}
	if proof.Protocol != "" && proof.Protocol != protocolGroth16 {
		return nil, fmt.Errorf("unsupported proof protocol %q", proof.Protocol)
	}
	return proof, nil
}

// UnmarshalCircomVerificationKeyJSON parses a snarkjs verification_key.json.
func UnmarshalCircomVerificationKeyJSON(data []byte) (*CircomVerificationKey, error) {
	vk := &CircomVerificationKey{}
	if err := json.Unmarshal(data, vk); err != nil {
		return nil, fmt.Errorf("failed to parse verification key JSON: %w", err)
	}
	if vk.Protocol != protocolGroth16 {
		return nil, fmt.Errorf("unsupported verification key protocol %q", vk.Protocol)
	}
	if vk.Curve != "" && vk.Curve != curveBN128 {
		return nil, fmt.Errorf("unsupported verification key curve %q", vk.Curve)
	}
	return vk, nil
}
