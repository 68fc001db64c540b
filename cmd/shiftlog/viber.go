package main

import (
	"fmt"
	"strings"

	"github.com/pinetree-ops/shiftlog/internal/data"
	"github.com/spf13/cobra"
)

var viberWebhookURL string

var viberCmd = &cobra.Command{
	Use:   "viber",
	Short: "Viber bot administration",
}

var viberSetWebhookCmd = &cobra.Command{
	Use:   "set-webhook",
	Short: "Register the webhook URL with Viber",
	Long: `Register PUBLIC_BASE_URL/webhook/viber (or --url) as the bot webhook.
Viber calls the URL once to validate it, so the server must already be
reachable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := viberWebhookURL
		if url == "" {
			if cfg.Server.PublicBaseURL == "" {
				return fmt.Errorf("PUBLIC_BASE_URL is not set, pass --url")
			}
			url = strings.TrimRight(cfg.Server.PublicBaseURL, "/") + "/webhook/viber"
		}

		viber := data.NewViberRepo(cfg.Viber.BotToken, cfg.Viber.SenderName, cfg.Viber.APIURL)
		if err := viber.SetWebhook(cmd.Context(), url); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Webhook set: %s\n", url)
		return nil
	},
}

func init() {
	viberSetWebhookCmd.Flags().StringVar(&viberWebhookURL, "url", "", "Webhook URL (default PUBLIC_BASE_URL/webhook/viber)")
	viberCmd.AddCommand(viberSetWebhookCmd)
	rootCmd.AddCommand(viberCmd)
}
