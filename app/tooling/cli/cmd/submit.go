package cmd

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	submitData string
	submitFile string
	submitSign bool
)

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a payload to the node mempool",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readData(submitData, submitFile)
		if err != nil {
			return err
		}
		if data == nil {
			return errors.New("no data to submit")
		}

		if submitSign {
			privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
			if err != nil {
				return err
			}

			sp, err := signature.Sign(data, privateKey)
			if err != nil {
				return err
			}

			if data, err = json.Marshal(sp); err != nil {
				return err
			}
		}

		var resp json.RawMessage
		c := newClient(nodeURL, 10*time.Second)
		if err := c.do(cmd.Context(), http.MethodPost, "/v1/payloads/submit", data, &resp); err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVarP(&submitData, "data", "d", "", "JSON data to submit.")
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "File to read the JSON data from.")
	submitCmd.Flags().BoolVarP(&submitSign, "sign", "s", false, "Sign the data with the wallet key.")
}
