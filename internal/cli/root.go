// Package cli implements galleryctl, the operator command line for the
// gallery analysis API.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anime-shed/image-gallery-go/pkg/client"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "GALLERYCTL"
	defaultServer  = "http://localhost:8000"
	defaultTimeout = 2 * time.Minute
)

type app struct {
	v      *viper.Viper
	client *client.Client
}

// NewRootCommand builds the galleryctl command tree. Settings come from
// flags first, then GALLERYCTL_* environment variables.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "galleryctl",
		Short:         "galleryctl operates the AI image gallery analysis API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			server := strings.TrimSpace(a.v.GetString("server"))
			if server == "" {
				return fmt.Errorf("server address is required")
			}
			a.client = client.New(server, a.v.GetDuration("timeout"))
			return nil
		},
	}

	rootCmd.PersistentFlags().String("server", defaultServer, "base URL of the gallery API")
	rootCmd.PersistentFlags().Duration("timeout", defaultTimeout, "request timeout")

	_ = a.v.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = a.v.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	rootCmd.AddCommand(
		a.statusCmd(),
		a.submitCmd(),
		a.retryCmd(),
		a.similarCmd(),
		a.suggestCmd(),
		a.healthCmd(),
	)
	return rootCmd
}

// Execute runs galleryctl with the process arguments
func Execute() error {
	return NewRootCommand().Execute()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid image id %q: %w", raw, err)
	}
	return id, nil
}
