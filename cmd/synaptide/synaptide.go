// Package synaptidecmder
package synaptidecmder

import (
	"github.com/spf13/cobra"

	servecmder "github.com/synaptideco/synaptide/cmd/synaptide/serve"
	versioncmder "github.com/synaptideco/synaptide/cmd/version"
)

const synaptideLongDesc string = `Synaptide is a chat backend with persistent memory.

It stores per-user conversation history, generates replies through an
OpenAI-compatible model, and maintains a preference profile for each user
that it refreshes as the conversation grows.

Run the service using:
  synaptide serve      Run the API server`

const synaptideShortDesc string = "Synaptide - Chat with memory"

func NewSynaptideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synaptide",
		Short: synaptideShortDesc,
		Long:  synaptideLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Directory containing config.toml")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
