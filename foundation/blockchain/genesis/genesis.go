// Package genesis maintains the values every replica of a network must
// agree on before the first block is mined: the fixed root block and the
// target time between blocks.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// MineRate is the default target time between two blocks.
const MineRate = 4 * time.Second

// Genesis represents the genesis file.
type Genesis struct {
	TimeStamp  int64           `json:"timestamp"`  // Fixed creation time of the root block.
	LastHash   string          `json:"last_hash"`  // Sentinel used in place of a predecessor hash.
	Hash       string          `json:"hash"`       // Sentinel hash of the root block.
	Data       json.RawMessage `json:"data"`       // Payload of the root block.
	Difficulty uint            `json:"difficulty"` // Starting number of leading zero bits.
	Nonce      uint64          `json:"nonce"`      // Fixed nonce of the root block.
	MineRate   time.Duration   `json:"mine_rate"`  // Target time between blocks in nanoseconds.
}

// Default returns the genesis values used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		TimeStamp:  1,
		LastHash:   "genesis_last_hash",
		Hash:       "genesis_hash",
		Data:       json.RawMessage("[]"),
		Difficulty: 3,
		Nonce:      0,
		MineRate:   MineRate,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values can root a chain.
func (g Genesis) Validate() error {
	if g.Difficulty < 1 {
		return errors.New("genesis difficulty must be at least 1")
	}

	if g.MineRate <= 0 {
		return errors.New("genesis mine rate must be positive")
	}

	if len(g.Data) > 0 && !json.Valid(g.Data) {
		return errors.New("genesis data is not valid json")
	}

	return nil
}
