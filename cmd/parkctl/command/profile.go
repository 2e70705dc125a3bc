package command

import (
	"github.com/spf13/cobra"

	"github.com/frontandrew/parkpos/internal/pkg/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Installation profile helpers",
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective profile, defaults included",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := profile.LoadFile(profilePath)
		if err != nil {
			return err
		}
		data, err := profile.Marshal(settings)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	profileCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(profileCmd)
}
