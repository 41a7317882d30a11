package database

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ardanlabs/powchain/foundation/blockchain/hexbin"
)

// Payload is the application data carried by a block. It is never
// interpreted by the blockchain, only hashed and transported.
type Payload = json.RawMessage

// NewPayload converts any value with a JSON form into a payload.
func NewPayload(value any) (Payload, error) {
	return json.Marshal(value)
}

// =============================================================================

// Block represents a unit of the chain. A block is never changed after it
// is constructed.
type Block struct {
	TimeStamp  int64   // Nanoseconds since the unix epoch when the block was mined.
	LastHash   string  // Hash of the previous block in the chain.
	Hash       string  // Hash of this block's fields.
	Payload    Payload // Application data, uninterpreted.
	Difficulty uint    // Number of leading zero bits required in the hash.
	Nonce      uint64  // Value identified to solve the hash solution.
}

// GenesisBlock constructs the root block for the specified genesis values.
func GenesisBlock(gen genesis.Genesis) Block {
	data := gen.Data
	if len(data) == 0 {
		data = Payload("[]")
	}

	return Block{
		TimeStamp:  gen.TimeStamp,
		LastHash:   gen.LastHash,
		Hash:       gen.Hash,
		Payload:    append(Payload(nil), data...),
		Difficulty: gen.Difficulty,
		Nonce:      gen.Nonce,
	}
}

// ComputeHash returns the hash for a block with the specified fields. The
// fields are tagged by name, so the same field set is hashed identically at
// mining and validation time regardless of argument order.
func ComputeHash(timeStamp int64, lastHash string, payload Payload, difficulty uint, nonce uint64) (string, error) {
	return hash.Fields(
		hash.Field{Name: "timestamp", Value: timeStamp},
		hash.Field{Name: "last_hash", Value: lastHash},
		hash.Field{Name: "data", Value: normalize(payload)},
		hash.Field{Name: "difficulty", Value: difficulty},
		hash.Field{Name: "nonce", Value: nonce},
	)
}

// Equal reports whether two blocks hold the same values field for field.
// Payloads are compared by their compact JSON form.
func (b Block) Equal(o Block) bool {
	return b.TimeStamp == o.TimeStamp &&
		b.LastHash == o.LastHash &&
		b.Hash == o.Hash &&
		b.Difficulty == o.Difficulty &&
		b.Nonce == o.Nonce &&
		payloadEqual(b.Payload, o.Payload)
}

// clone returns a copy of the block that shares no memory with it.
func (b Block) clone() Block {
	b.Payload = append(Payload(nil), b.Payload...)
	return b
}

// cloneChain returns a copy of the blocks that shares no memory with them.
func cloneChain(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, block := range blocks {
		out[i] = block.clone()
	}
	return out
}

// ValidateBlock takes a block and validates it against the block that
// precedes it. The checks run in order and the first failure is returned.
func ValidateBlock(previousBlock Block, block Block) error {
	return validateBlock(previousBlock, block, -1)
}

func validateBlock(previousBlock Block, block Block, index int) error {
	if block.LastHash != previousBlock.Hash {
		return &BlockError{Err: ErrLinkage, Index: index, Field: "last_hash", Got: block.LastHash, Exp: previousBlock.Hash}
	}

	// A difficulty of 0 accepts any hash, which removes the work.
	if block.Difficulty < 1 || !hexbin.HasLeadingZeros(block.Hash, block.Difficulty) {
		return &BlockError{Err: ErrProofOfWork, Index: index, Field: "hash", Got: block.Hash, Exp: strconv.FormatUint(uint64(block.Difficulty), 10) + " leading zero bits"}
	}

	if diff(previousBlock.Difficulty, block.Difficulty) > 1 {
		return &BlockError{Err: ErrDifficultyJump, Index: index, Field: "difficulty", Got: strconv.FormatUint(uint64(block.Difficulty), 10), Exp: strconv.FormatUint(uint64(previousBlock.Difficulty), 10) + " +/- 1"}
	}

	h, err := ComputeHash(block.TimeStamp, block.LastHash, block.Payload, block.Difficulty, block.Nonce)
	if err != nil {
		return &BlockError{Err: ErrHashIntegrity, Index: index, Field: "data", Got: err.Error()}
	}

	if h != block.Hash {
		return &BlockError{Err: ErrHashIntegrity, Index: index, Field: "hash", Got: block.Hash, Exp: h}
	}

	return nil
}

// =============================================================================

// BlockData represents what is sent over the wire and what is compared when
// checking the genesis block.
type BlockData struct {
	TimeStamp  int64   `json:"timestamp"`
	LastHash   string  `json:"last_hash"`
	Hash       string  `json:"hash"`
	Payload    Payload `json:"data"`
	Difficulty uint    `json:"difficulty"`
	Nonce      uint64  `json:"nonce"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	return BlockData{
		TimeStamp:  block.TimeStamp,
		LastHash:   block.LastHash,
		Hash:       block.Hash,
		Payload:    normalize(block.Payload),
		Difficulty: block.Difficulty,
		Nonce:      block.Nonce,
	}
}

// ToBlock converts a BlockData into a Block.
func ToBlock(blockData BlockData) Block {
	return Block{
		TimeStamp:  blockData.TimeStamp,
		LastHash:   blockData.LastHash,
		Hash:       blockData.Hash,
		Payload:    append(Payload(nil), blockData.Payload...),
		Difficulty: blockData.Difficulty,
		Nonce:      blockData.Nonce,
	}
}

// NewChainData converts a chain into the value to serialize.
func NewChainData(blocks []Block) []BlockData {
	data := make([]BlockData, len(blocks))
	for i, block := range blocks {
		data[i] = NewBlockData(block)
	}
	return data
}

// ToChain converts serialized blocks into a chain.
func ToChain(data []BlockData) []Block {
	blocks := make([]Block, len(data))
	for i, bd := range data {
		blocks[i] = ToBlock(bd)
	}
	return blocks
}

// =============================================================================

// normalize returns the JSON null literal for an empty payload so a missing
// payload hashes and serializes the same way everywhere.
func normalize(payload Payload) Payload {
	if len(payload) == 0 {
		return Payload("null")
	}
	return payload
}

// payloadEqual compares two payloads by their compact JSON form.
func payloadEqual(a, b Payload) bool {
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, normalize(a)); err != nil {
		return bytes.Equal(a, b)
	}
	if err := json.Compact(&cb, normalize(b)); err != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// diff returns the absolute difference between two difficulties.
func diff(a, b uint) uint {
	if a > b {
		return a - b
	}
	return b - a
}
