package main

import (
	"github.com/spf13/cobra"

	"github.com/hsisomap/hsisomap/artifact"
	"github.com/hsisomap/hsisomap/backbone"
	"github.com/hsisomap/hsisomap/logging"
)

func newNNCacheCmd(f *rootFlags) *cobra.Command {
	var (
		input     string
		indexFile string
		out       string
		neighbors int
		primary   int
		secondary int
		workers   int
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "nncache",
		Short: "Precompute the backbone NN cache of an image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, done, err := f.logger(cmd, logging.Config{})
			if err != nil {
				return err
			}
			defer done()

			data, err := artifact.ReadMatrix(input)
			if err != nil {
				return err
			}
			idx, err := artifact.ReadIndices(indexFile)
			if err != nil {
				return err
			}
			opts := []backbone.Option{
				backbone.WithSearchRanges(primary, secondary),
				backbone.WithSeed(seed),
				backbone.WithLogger(log),
			}
			if workers > 0 {
				opts = append(opts, backbone.WithWorkers(workers))
			}
			bb, err := backbone.New(data, idx, opts...)
			if err != nil {
				return err
			}
			if err = bb.PrepareNNCache(cmd.Context(), neighbors); err != nil {
				return err
			}

			return artifact.WriteMatrix(out, bb.NNCache())
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input matrix file")
	cmd.Flags().StringVar(&indexFile, "backbone", "", "backbone index file")
	cmd.Flags().StringVar(&out, "out", "nncache.txt", "output cache file (.zst and .lz4 are compressed)")
	cmd.Flags().IntVar(&neighbors, "neighbors", 10, "backbone neighbours per pixel")
	cmd.Flags().IntVar(&primary, "primary-range", 0, "primary search range (0: 10 × neighbors)")
	cmd.Flags().IntVar(&secondary, "secondary-range", 0, "secondary search range (0: 20 × neighbors)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (default: GOMAXPROCS)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "VP-tree seed")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("backbone")

	return cmd
}
