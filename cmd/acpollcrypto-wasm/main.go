//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
)

const (
	jsClassName          = "ACPollCrypto"
	jsPublicKeyHash      = "publicKeyHash"
	jsRegistrationLeaf   = "registrationLeaf"
	jsInteractionLeaf    = "interactionLeaf"
	jsBuildOutcome       = "buildOutcome"
	publicKeyHashNArgs   = 1 // types.PublicKey json encoded string
	registrationLeafArgs = 2 // types.PublicKey json encoded string and timestamp as number
	interactionLeafArgs  = 2 // types.PublicKey and types.InteractionData json encoded strings
	buildOutcomeNArgs    = 4 // vote option tree depth as uint8, tallies json encoded and hex strings with both salts
)

func publicKey(v js.Value) (types.PublicKey, error) {
	pk, err := FromJSONValue[types.PublicKey](v)
	if err != nil {
		return pk, fmt.Errorf("Invalid public key: %v", err)
	}
	if err := pk.Validate(); err != nil {
		return pk, err
	}
	return pk, nil
}

func publicKeyHash(args []js.Value) any {
	if len(args) != publicKeyHashNArgs {
		return JSResult(nil, fmt.Errorf("Invalid number of arguments, expected %d got %d", publicKeyHashNArgs, len(args)))
	}
	pk, err := publicKey(args[0])
	if err != nil {
		return JSResult(nil, err)
	}
	h, err := poll.PublicKeyHash(pk)
	if err != nil {
		return JSResult(nil, fmt.Errorf("Error hashing public key: %v", err))
	}
	return JSResult(h.String())
}

func registrationLeaf(args []js.Value) any {
	if len(args) != registrationLeafArgs {
		return JSResult(nil, fmt.Errorf("Invalid number of arguments, expected %d got %d", registrationLeafArgs, len(args)))
	}
	pk, err := publicKey(args[0])
	if err != nil {
		return JSResult(nil, err)
	}
	if args[1].Type() != js.TypeNumber || args[1].Int() < 0 {
		return JSResult(nil, fmt.Errorf("Invalid timestamp"))
	}
	leaf, err := poll.RegistrationLeaf(pk, uint64(args[1].Int()))
	if err != nil {
		return JSResult(nil, fmt.Errorf("Error hashing registration: %v", err))
	}
	return JSResult(leaf.String())
}

func interactionLeaf(args []js.Value) any {
	if len(args) != interactionLeafArgs {
		return JSResult(nil, fmt.Errorf("Invalid number of arguments, expected %d got %d", interactionLeafArgs, len(args)))
	}
	pk, err := publicKey(args[0])
	if err != nil {
		return JSResult(nil, err)
	}
	data, err := FromJSONValue[types.InteractionData](args[1])
	if err != nil {
		return JSResult(nil, fmt.Errorf("Invalid interaction data: %v", err))
	}
	leaf, err := poll.InteractionLeaf(pk, data)
	if err != nil {
		return JSResult(nil, fmt.Errorf("Error hashing interaction: %v", err))
	}
	return JSResult(leaf.String())
}

func buildOutcome(args []js.Value) any {
	if len(args) != buildOutcomeNArgs {
		return JSResult(nil, fmt.Errorf("Invalid number of arguments, expected %d got %d", buildOutcomeNArgs, len(args)))
	}
	depth, err := FromUint8(args[0])
	if err != nil {
		return JSResult(nil, fmt.Errorf("Invalid vote option tree depth: %v", err))
	}
	tallies, err := FromJSONValue[[]uint32](args[1])
	if err != nil {
		return JSResult(nil, fmt.Errorf("Invalid tallies: %v", err))
	}
	resultSalt, err := FromHashBytes(args[2])
	if err != nil {
		return JSResult(nil, fmt.Errorf("Invalid result salt: %v", err))
	}
	spentSalt, err := FromHashBytes(args[3])
	if err != nil {
		return JSResult(nil, fmt.Errorf("Invalid spent salt: %v", err))
	}
	outcome, commitment, err := poll.BuildOutcome(depth, tallies, resultSalt, spentSalt)
	if err != nil {
		return JSResult(nil, fmt.Errorf("Error building outcome: %v", err))
	}
	bRes, err := json.Marshal(map[string]any{
		"outcome":    outcome,
		"commitment": commitment,
	})
	if err != nil {
		return JSResult(nil, fmt.Errorf("Error marshaling result: %v", err.Error()))
	}
	return JSResult(string(bRes))
}

// main sets up the JavaScript interface and starts the WASM module
func main() {
	class := js.ValueOf(map[string]any{})
	class.Set(jsPublicKeyHash, js.FuncOf(func(this js.Value, args []js.Value) any {
		return publicKeyHash(args)
	}))
	class.Set(jsRegistrationLeaf, js.FuncOf(func(this js.Value, args []js.Value) any {
		return registrationLeaf(args)
	}))
	class.Set(jsInteractionLeaf, js.FuncOf(func(this js.Value, args []js.Value) any {
		return interactionLeaf(args)
	}))
	class.Set(jsBuildOutcome, js.FuncOf(func(this js.Value, args []js.Value) any {
		return buildOutcome(args)
	}))
	// Register the class in the global scope so it can be accessed from JavaScript
	js.Global().Set(jsClassName, class)
	// Keep the Go program running
	select {}
}
