package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"telegram-game-launcher/internal/application"
	"telegram-game-launcher/internal/config"
	"telegram-game-launcher/internal/domain/model"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Build the command registry from config and list it",
	Long: `Builds the registry exactly as serve would, runs every handler once
against a sample event and prints the result. Duplicate names or handlers
producing an invalid reply make the command fail, so it can gate a deploy.
No bot token is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, devMode)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		_, reg, err := buildMenu(cfg)
		if err != nil {
			return err
		}
		return printCommands(cmd, reg)
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}

func printCommands(cmd *cobra.Command, reg *application.CommandRegistry) error {
	entries := reg.Commands()
	if fb, ok := reg.Fallback(); ok {
		entries = append(entries, fb)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMMAND\tDESCRIPTION\tREPLY\tSTATUS")
	failed := 0
	for _, c := range entries {
		status, reply := "ok", "-"
		tpl, err := dryRun(c)
		if err != nil {
			failed++
			status = err.Error()
		} else {
			reply = describeReply(tpl)
		}
		fmt.Fprintf(w, "/%s\t%s\t%s\t%s\n", c.Name, c.Description, reply, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d command(s) produce an invalid reply", failed)
	}
	return nil
}

func describeReply(tpl model.ResponseTemplate) string {
	kind := "text"
	if tpl.HasMedia() {
		kind = "photo"
	}
	mode := string(tpl.ParseMode)
	if mode == "" {
		mode = "plain"
	}
	return fmt.Sprintf("%s/%s, %d button(s)", kind, mode, tpl.Keyboard.Buttons())
}
