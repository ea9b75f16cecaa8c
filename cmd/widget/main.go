package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartbotly/smartbotly/internal/widget"
)

var (
	serverURL string
	metered   bool

	cfg = widget.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "smartbotly-widget",
	Short: "Run the SmartBotly chat widget in your terminal",
	Long: `smartbotly-widget connects the SmartBotly chat widget to a running
chat service. Without an API key it runs in demo mode against the canned
responses; with a key it streams real model replies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := widget.NewClient(serverURL)

		var usage widget.UsageChecker
		if metered {
			usage = client
		}

		session := widget.NewSession(cfg, client, usage)
		return widget.NewProgram(session).Run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "chat service base URL")
	rootCmd.Flags().StringVar(&cfg.APIKey, "api-key", "", "API key (empty runs in demo mode)")
	rootCmd.Flags().StringVar(&cfg.ChatbotID, "chatbot-id", "default", "chatbot whose documents ground the replies")
	rootCmd.Flags().StringVar(&cfg.ChatbotName, "name", cfg.ChatbotName, "display name")
	rootCmd.Flags().StringVar(&cfg.Greeting, "greeting", cfg.Greeting, "greeting seeded when the widget opens")
	rootCmd.Flags().StringVar(&cfg.PrimaryColor, "primary-color", cfg.PrimaryColor, "header and accent color")
	rootCmd.Flags().StringVar((*string)(&cfg.Theme), "theme", string(cfg.Theme), "light, dark or auto")
	rootCmd.Flags().StringVar((*string)(&cfg.Position), "position", string(cfg.Position), "widget corner (bottom-right, bottom-left, top-right, top-left)")
	rootCmd.Flags().BoolVar(&cfg.AutoOpen, "auto-open", false, "open the chat window on start")
	rootCmd.Flags().BoolVar(&cfg.ShowBranding, "branding", cfg.ShowBranding, "show the SmartBotly footer")
	rootCmd.Flags().BoolVar(&metered, "metered", false, "check the key's remaining calls before each send")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
