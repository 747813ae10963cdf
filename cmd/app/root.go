package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	devMode bool
)

var rootCmd = &cobra.Command{
	Use:   "gamebot",
	Short: "Telegram launcher bot for the Level Devil web game",
	Long: `gamebot answers Telegram commands with a menu that opens the game as a
Telegram web app, invites friends through inline sharing and links the
leaderboard. It long-polls the Bot API; no webhook is needed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "developer mode: console logs, unredacted text")
}
