package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hsisomap/hsisomap/artifact"
	"github.com/hsisomap/hsisomap/embedding"
	"github.com/hsisomap/hsisomap/logging"
)

func newPCACmd(f *rootFlags) *cobra.Command {
	var (
		input  string
		outDir string
		dims   int
	)
	cmd := &cobra.Command{
		Use:   "pca",
		Short: "Principal component analysis of a matrix file",
		Long:  `Writes space.txt, vectors.txt and values.txt to the output directory.`,
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
			e, err := embedding.PCA(data, dims)
			if err != nil {
				return err
			}
			if err = artifact.WriteMatrix(filepath.Join(outDir, "space.txt"), e.Space); err != nil {
				return err
			}
			if err = artifact.WriteMatrix(filepath.Join(outDir, "vectors.txt"), e.Vectors); err != nil {
				return err
			}
			if err = artifact.WriteMatrix(filepath.Join(outDir, "values.txt"), e.Values); err != nil {
				return err
			}
			log.Info("pca written", "rows", data.Rows(), "dims", e.Space.Cols(), "dir", outDir)

			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input matrix file")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "output directory")
	cmd.Flags().IntVar(&dims, "dims", 0, "retained components (0: all)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
