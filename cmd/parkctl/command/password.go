package command

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frontandrew/parkpos/internal/pkg/hash"
)

var passwordCost int

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Operator password helpers",
}

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Read a password from stdin and print OPERATOR_PASSWORD_HASH",
	RunE: func(cmd *cobra.Command, _ []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}

		hashed, err := hash.HashPasswordWithCost(strings.TrimRight(line, "\r\n"), passwordCost)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "OPERATOR_PASSWORD_HASH=%s\n", hashed)
		return nil
	},
}

func init() {
	hashCmd.Flags().IntVar(&passwordCost, "cost", hash.DefaultCost, "bcrypt cost")
	passwordCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(passwordCmd)
}
