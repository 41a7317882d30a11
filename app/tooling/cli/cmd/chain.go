package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/spf13/cobra"
)

var chainVerbose bool

// chainCmd represents the chain command
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Fetch the chain from the node and validate it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(nodeURL, 30*time.Second)
		return checkChain(cmd.Context(), cmd.OutOrStdout(), c, chainVerbose)
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().BoolVarP(&chainVerbose, "verbose", "v", false, "Print every block.")
}

// checkChain downloads the genesis and the chain and runs the chain
// validation rules against them.
func checkChain(ctx context.Context, w io.Writer, c *client, verbose bool) error {
	var gen genesis.Genesis
	if err := c.do(ctx, http.MethodGet, "/v1/genesis", nil, &gen); err != nil {
		return err
	}

	var data []database.BlockData
	if err := c.do(ctx, http.MethodGet, "/v1/blocks/list", nil, &data); err != nil {
		return err
	}

	chain := database.ToChain(data)

	if verbose {
		if err := printJSON(w, data); err != nil {
			return err
		}
	}

	if err := database.ValidateChain(database.GenesisBlock(gen), chain); err != nil {
		fmt.Fprintf(w, "length: %d\nvalid: false\n", len(chain))
		return err
	}

	latest := chain[len(chain)-1]
	fmt.Fprintf(w, "length: %d\nlatest: %s\ndifficulty: %d\nvalid: true\n", len(chain), latest.Hash, latest.Difficulty)

	return nil
}
