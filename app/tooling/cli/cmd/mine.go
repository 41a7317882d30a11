package cmd

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	mineData    string
	mineFile    string
	mineTimeout time.Duration
)

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine a block with the data or its mempool",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readData(mineData, mineFile)
		if err != nil {
			return err
		}

		body, err := json.Marshal(struct {
			Data json.RawMessage `json:"data,omitempty"`
		}{
			Data: data,
		})
		if err != nil {
			return err
		}

		var block database.BlockData
		c := newClient(nodeURL, mineTimeout)
		if err := c.do(cmd.Context(), http.MethodPost, "/v1/blocks/mine", body, &block); err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), block)
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVarP(&mineData, "data", "d", "", "JSON data for the block, the mempool is mined when empty.")
	mineCmd.Flags().StringVarP(&mineFile, "file", "f", "", "File to read the JSON data from.")
	mineCmd.Flags().DurationVarP(&mineTimeout, "timeout", "t", time.Minute, "How long to wait for the block.")
}
