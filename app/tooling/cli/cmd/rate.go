package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/spf13/cobra"
)

var (
	rateBlocks   int
	rateMineRate time.Duration
	rateWorkers  int
)

// rateCmd represents the rate command
var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Mine blocks locally and report how the difficulty tracks the mine rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mineRate(cmd.Context(), cmd.OutOrStdout(), rateBlocks, rateMineRate, rateWorkers)
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
	rateCmd.Flags().IntVarP(&rateBlocks, "blocks", "n", 100, "Number of blocks to mine.")
	rateCmd.Flags().DurationVarP(&rateMineRate, "mine-rate", "r", genesis.MineRate, "Target time between blocks.")
	rateCmd.Flags().IntVarP(&rateWorkers, "workers", "g", 1, "Number of goroutines searching for a nonce.")
}

// mineRate mines blocks on a local chain and prints the time each block
// took, its difficulty and the running average.
func mineRate(ctx context.Context, w io.Writer, blocks int, rate time.Duration, workers int) error {
	gen := genesis.Default()
	gen.MineRate = rate

	db, err := database.New(gen)
	if err != nil {
		return err
	}

	var total time.Duration
	for i := 1; i <= blocks; i++ {
		prevBlock := db.LatestBlock()

		block, err := database.POW(ctx, database.POWArgs{
			PrevBlock: prevBlock,
			Payload:   database.Payload(fmt.Sprintf("%d", i)),
			MineRate:  rate,
			Workers:   workers,
		})
		if err != nil {
			return err
		}

		if err := db.Append(block); err != nil {
			return err
		}

		elapsed := time.Duration(block.TimeStamp - prevBlock.TimeStamp)
		if i == 1 {
			elapsed = 0
		}
		total += elapsed

		fmt.Fprintf(w, "block: %d time to mine: %v difficulty: %d average time: %v\n",
			i, elapsed, block.Difficulty, total/time.Duration(i))
	}

	return nil
}
