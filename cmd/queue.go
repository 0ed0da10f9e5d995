package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/identity-cli/internal/backfill"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and drain the backfill queue",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-status request counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.queue.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("pending:    %d\n", stats.Pending)
		fmt.Printf("processing: %d\n", stats.Processing)
		fmt.Printf("done:       %d\n", stats.Done)
		fmt.Printf("failed:     %d\n", stats.Failed)
		return nil
	},
}

var drainAll bool

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Resolve pending requests via the external provider",
	Long:  "Claims pending requests, resolves each name through the lookup provider, backflows answers into the mapping cache, and marks requests done or failed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		client := initLookupClient()
		if client == nil {
			return eris.New("queue drain requires lookup.base_url")
		}

		d := backfill.NewDrainer(env.queue, client, env.store, cfg.Queue.DrainBatchSize, cfg.Queue.DrainWorkers)

		var total backfill.DrainResult
		for {
			res, err := d.Drain(ctx)
			if err != nil {
				return err
			}
			total.Claimed += res.Claimed
			total.Resolved += res.Resolved
			total.Failed += res.Failed
			if res.Claimed == 0 || !drainAll {
				break
			}
		}

		fmt.Printf("claimed: %d, resolved: %d, failed: %d\n", total.Claimed, total.Resolved, total.Failed)
		return nil
	},
}

func init() {
	queueDrainCmd.Flags().BoolVar(&drainAll, "all", false, "keep draining until the queue is empty")
	queueCmd.AddCommand(queueStatusCmd, queueDrainCmd)
	rootCmd.AddCommand(queueCmd)
}
