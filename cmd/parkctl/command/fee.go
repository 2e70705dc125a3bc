package command

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/profile"
)

var (
	feeType  string
	feeEntry string
	feeExit  string
)

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Calculate the parking fee with the profile tariffs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := profile.LoadFile(profilePath)
		if err != nil {
			return err
		}

		var exit *time.Time
		if feeExit != "" {
			t, err := domain.ParseTimestamp(feeExit)
			if err != nil {
				return fmt.Errorf("--exit: %w", err)
			}
			exit = &t
		}
		if _, err := domain.ParseTimestamp(feeEntry); err != nil {
			return fmt.Errorf("--entry: %w", err)
		}

		stats := domain.CalculateStay(feeEntry, feeType, settings.Tariffs, exit)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Tipo:     %s\n", feeType)
		fmt.Fprintf(out, "Tiempo:   %s\n", stats.DurationText)
		fmt.Fprintf(out, "Horas:    %d\n", stats.ChargedHours)
		fmt.Fprintf(out, "Tarifa:   %s\n", domain.FormatCurrency(stats.Rate, settings.Currency))
		fmt.Fprintf(out, "Total:    %s\n", domain.FormatCurrency(stats.Total, settings.Currency))
		return nil
	},
}

func init() {
	feeCmd.Flags().StringVarP(&feeType, "type", "t", "", "vehicle type")
	feeCmd.Flags().StringVarP(&feeEntry, "entry", "e", "", "entry timestamp (RFC 3339)")
	feeCmd.Flags().StringVarP(&feeExit, "exit", "x", "", "exit timestamp, now if empty")
	_ = feeCmd.MarkFlagRequired("type")
	_ = feeCmd.MarkFlagRequired("entry")
	rootCmd.AddCommand(feeCmd)
}
