package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/release-packager/internal/service/checksum"
)

var errMismatch = errors.New("digest mismatch")

func newVerifyCommand() *cobra.Command {
	var algorithm string

	verifyCmd := &cobra.Command{
		Use:   "verify file...",
		Short: "Check files against their .digest files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alg, err := checksum.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}

			generator, err := checksum.NewGenerator(alg)
			if err != nil {
				return err
			}

			var failed int

			for _, path := range args {
				ok, verifyErr := generator.Verify(path)
				if verifyErr != nil {
					return verifyErr
				}

				status := "OK"
				if !ok {
					status = "MISMATCH"
					failed++
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, status)
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errMismatch, failed, len(args))
			}

			return nil
		},
	}

	verifyCmd.Flags().StringVarP(&algorithm, "digest-algorithm", "a", "", "checksum algorithm (default \"sha256\")")

	return verifyCmd
}
