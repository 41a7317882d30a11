package genesis_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
)

func Test_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")

	content := `{"difficulty": 5, "mine_rate": 1000000000}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	gen, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %s", err)
	}

	if gen.Difficulty != 5 {
		t.Logf("got: %d", gen.Difficulty)
		t.Logf("exp: %d", 5)
		t.Fatalf("Should get the difficulty from the file.")
	}

	if gen.MineRate != time.Second {
		t.Logf("got: %v", gen.MineRate)
		t.Logf("exp: %v", time.Second)
		t.Fatalf("Should get the mine rate from the file.")
	}

	if gen.Hash != genesis.Default().Hash {
		t.Fatalf("Should keep the default hash when the file doesn't set one.")
	}
}

func Test_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")

	if err := os.WriteFile(path, []byte(`{"difficulty": 0}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	if _, err := genesis.Load(path); err == nil {
		t.Fatalf("Should not be able to load a genesis with a zero difficulty.")
	}
}
