package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

type turnHandler interface {
	HandleMessage(ctx context.Context, userID string, text string) (string, error)
	Reset(ctx context.Context, userID string) error
}

func newChatCmd(root *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the concierge on the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !root.debug {
				logx.Quiet()
			}

			a, err := wireApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(cmd.Context(), a.orchestrator, userID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "local", "user id for the conversation")
	return cmd
}

// runChat reads one utterance per line until EOF or /quit. /reset clears the
// conversation.
func runChat(ctx context.Context, h turnHandler, userID string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Concierge ready. Type /reset to start over or /quit to leave.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := h.Reset(ctx, userID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		reply, err := h.HandleMessage(ctx, userID, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply)
	}
}
