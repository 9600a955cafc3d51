package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show in-flight analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.client.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		},
	}
}

func (a *app) submitCmd() *cobra.Command {
	var imageURL string
	cmd := &cobra.Command{
		Use:   "submit <image-id>",
		Short: "Schedule a background analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := a.client.Submit(cmd.Context(), id, imageURL)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, resp); err != nil {
				return err
			}
			if !resp.Accepted {
				return fmt.Errorf("analysis not scheduled: %s", resp.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imageURL, "url", "", "analyze this URL instead of the stored one")
	return cmd
}

func (a *app) retryCmd() *cobra.Command {
	var imageURL string
	cmd := &cobra.Command{
		Use:   "retry <image-id>",
		Short: "Re-run an analysis and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := a.client.Retry(cmd.Context(), id, imageURL)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, resp); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("retry failed: %s", resp.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imageURL, "url", "", "analyze this URL instead of the stored one")
	return cmd
}

func (a *app) similarCmd() *cobra.Command {
	var (
		limit     int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "similar <image-id>",
		Short: "Find images similar to an analyzed image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var t *float64
			if cmd.Flags().Changed("threshold") {
				t = &threshold
			}
			resp, err := a.client.Similar(cmd.Context(), id, limit, t)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (server default when 0)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity score")
	return cmd
}

func (a *app) suggestCmd() *cobra.Command {
	var owner, query string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest tags from an owner's analyzed images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := parseID(owner)
			if err != nil {
				return err
			}
			resp, err := a.client.Suggestions(cmd.Context(), ownerID, query)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	cmd.Flags().StringVar(&query, "query", "", "partial tag")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the detailed health report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, health)
		},
	}
}
