package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"studysync/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Opens an interactive chat. Each question goes through the same routing,
retrieval and generation as the chatbot endpoint.

Controls:
  Enter     - Send
  PgUp/PgDn - Scroll transcript
  Ctrl+C    - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	timeout := appCfg.Timeouts.Embedding() + appCfg.Timeouts.VectorQuery() + appCfg.Timeouts.Generation()
	p := tea.NewProgram(tui.New(a.Assistant, timeout), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
