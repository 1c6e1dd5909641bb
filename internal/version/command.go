package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand wires `wake-bulb version` and the --version flag into root.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show which wake-bulb build is running.",
		Long:  "Prints the release, git commit and build time of this wake-bulb binary.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})

	root.Version = Short()
	root.SetVersionTemplate("wake-bulb {{.Version}}\n")
}
