package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hsisomap/hsisomap/pipeline"
)

func newRunCmd(f *rootFlags) *cobra.Command {
	var (
		runID   string
		workers int
		metrics string
	)
	cmd := &cobra.Command{
		Use:   "run <task.yaml>",
		Short: "Run every task of a task file",
		Long: `Run every task of a task file in order.

A failing task is logged and the next task starts; the command exits
non-zero when any task failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.LoadConfig(args[0])
			if err != nil {
				return err
			}
			if metrics != "" {
				cfg.Metrics = metrics
			}
			log, done, err := f.logger(cmd, cfg.Log)
			if err != nil {
				return err
			}
			defer done()

			opts := []pipeline.Option{pipeline.WithLogger(log), pipeline.WithRunID(runID)}
			if workers > 0 {
				opts = append(opts, pipeline.WithWorkers(workers))
			}
			report, err := pipeline.Run(cmd.Context(), cfg, opts...)
			if report != nil {
				for _, t := range report.Tasks {
					status := "ok"
					if t.Err != nil {
						status = "FAILED"
					}
					cmd.Printf("%-6s %s\n", status, t.Name)
				}
			}
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: random UUID)")
	cmd.Flags().IntVar(&workers, "workers", 0, "default worker count (default: GOMAXPROCS)")
	cmd.Flags().StringVar(&metrics, "metrics", "", "write Prometheus metrics to this textfile")

	return cmd
}
