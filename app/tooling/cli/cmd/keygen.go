package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new key pair for signing payloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := getPrivateKeyPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("key %s already exists", path)
		}

		privateKey, err := crypto.GenerateKey()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}

		if err := crypto.SaveECDSA(path, privateKey); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "key: %s\naddress: %s\n", path, signature.Address(privateKey))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
