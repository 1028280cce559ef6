package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nersc/instbench/matmul"
)

func newVerifyCmd(e *env) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check both kernels against the BLAS reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := matmul.Verify(size); err != nil {
				return err
			}
			e.logger.Debug().Int("size", size).Msg("kernels verified")
			fmt.Fprintf(cmd.OutOrStdout(),
				"c and cxx match the reference product at size %d\n", size)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 32, "matrix order")
	return cmd
}
