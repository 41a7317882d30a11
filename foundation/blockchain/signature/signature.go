// Package signature provides helper functions for signing the payloads
// carried by the blockchain. The chain never interprets payloads, signing is
// a convention between the clients that submit them and the nodes that
// accept them.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// powchainID is an arbitrary number added to the recovery id so signatures
// produced for this chain are recognizable. Ethereum and Bitcoin do this as
// well, but they use the value of 27.
const powchainID = 29

// SignedPayload is a payload along with the signature of the account that
// produced it.
type SignedPayload struct {
	Data      json.RawMessage `json:"data"`
	Signer    string          `json:"signer"`
	Signature string          `json:"signature"`
}

// Address returns the account address for the private key.
func Address(privateKey *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(privateKey.PublicKey).String()
}

// Sign uses the specified private key to sign the data.
func Sign(data json.RawMessage, privateKey *ecdsa.PrivateKey) (SignedPayload, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return SignedPayload{}, fmt.Errorf("payload is not valid json: %w", err)
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(stamp(compact.Bytes()), privateKey)
	if err != nil {
		return SignedPayload{}, err
	}

	// Make the recovery id unique to this chain.
	sig[crypto.RecoveryIDOffset] += powchainID

	sp := SignedPayload{
		Data:      compact.Bytes(),
		Signer:    Address(privateKey),
		Signature: hexutil.Encode(sig),
	}

	return sp, nil
}

// Verify checks the signature is well formed and was produced by the signer
// for this exact data.
func Verify(sp SignedPayload) error {
	if !common.IsHexAddress(sp.Signer) {
		return errors.New("invalid signer address")
	}

	sig, err := hexutil.Decode(sp.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("invalid signature length %d", len(sig))
	}

	// Check the recovery id is either 0 or 1.
	recID := sig[crypto.RecoveryIDOffset] - powchainID
	if recID != 0 && recID != 1 {
		return errors.New("invalid recovery id")
	}

	// Check the signature values are valid.
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(recID, r, s, false) {
		return errors.New("invalid signature values")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, sp.Data); err != nil {
		return fmt.Errorf("payload is not valid json: %w", err)
	}

	// Capture the public key associated with this data and signature.
	raw := append([]byte(nil), sig...)
	raw[crypto.RecoveryIDOffset] = recID

	publicKey, err := crypto.SigToPub(stamp(compact.Bytes()), raw)
	if err != nil {
		return err
	}

	if signer := crypto.PubkeyToAddress(*publicKey); signer != common.HexToAddress(sp.Signer) {
		return fmt.Errorf("signature belongs to %s, not %s", signer, sp.Signer)
	}

	return nil
}

// Detect reports whether the data is a signed payload envelope.
func Detect(data []byte) (SignedPayload, bool) {
	var sp SignedPayload
	if err := json.Unmarshal(data, &sp); err != nil {
		return SignedPayload{}, false
	}

	if sp.Signer == "" || sp.Signature == "" || len(sp.Data) == 0 {
		return SignedPayload{}, false
	}

	return sp, true
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the chain stamp embedded into the final hash.
func stamp(data []byte) []byte {

	// Hash the data into a 32 byte array. This will provide
	// a data length consistency with all data.
	dataHash := crypto.Keccak256(data)

	// This stamp is used so signatures we produce when signing data
	// are always unique to this blockchain.
	stamp := []byte("\x19Powchain Signed Message:\n32")

	// Hash the stamp and dataHash together in a final 32 byte array
	// that represents the data.
	return crypto.Keccak256(stamp, dataHash)
}
