package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/release-radar/internal/services"
)

const generatedTokenBytes = 32

func newHashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Hash an API token for auth.token_hash",
		Long: `Hash-token prints the bcrypt hash to put in auth.token_hash. Without an
argument a random token is generated and printed alongside its hash.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := services.NewAuthService("")
			out := cmd.OutOrStdout()

			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				generated, err := auth.GenerateToken(generatedTokenBytes)
				if err != nil {
					return err
				}
				token = generated
				fmt.Fprintf(out, "token: %s\n", token)
			}

			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "token_hash: %s\n", hash)
			return nil
		},
	}
}
