package cmd

import (
	"errors"

	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	signData string
	signFile string
)

// signCmd represents the sign command
var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a payload and print the signed envelope",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readData(signData, signFile)
		if err != nil {
			return err
		}
		if data == nil {
			return errors.New("no data to sign")
		}

		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}

		sp, err := signature.Sign(data, privateKey)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), sp)
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&signData, "data", "d", "", "JSON data to sign.")
	signCmd.Flags().StringVarP(&signFile, "file", "f", "", "File to read the JSON data from.")
}
