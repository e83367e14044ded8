package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/service"
)

var askUser string

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Talk to the comment consultant",
	Long: `Ask the consultant about your videos' comments. With a message argument
a single turn runs; without one an interactive session starts. Paste a
YouTube link to analyse a video, then ask follow-up questions about it.

Examples:
  commentctl ask "analyse https://youtu.be/dQw4w9WgXcQ"
  commentctl ask`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", defaultUser(), "session owner")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func runAsk(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 1 {
		return askOnce(cmd.Context(), out, args[0])
	}
	return chatLoop(cmd.Context(), cmd.InOrStdin(), out)
}

func askOnce(ctx context.Context, out io.Writer, message string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := application.Chat.Send(ctx, askUser, &model.ChatRequest{Message: message})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, resp.Answer)
	if verbose {
		for _, t := range resp.Tools {
			status := "ok"
			if !t.Success {
				status = "failed: " + t.Error
			}
			fmt.Fprintf(out, "  [%s %s]\n", t.Tool, status)
		}
		fmt.Fprintf(out, "  [%dms]\n", resp.LatencyMs)
	}
	return nil
}

// chatLoop reads one message per line until EOF or "exit". "/reset" starts
// a fresh session.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Paste a YouTube link or ask a question. /reset clears the session, exit quits.")
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), service.MaxMessageLength*4)
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
		case "exit", "quit":
			return nil
		case "/reset":
			application.Chat.ClearSession(askUser)
			fmt.Fprintln(out, "Session cleared.")
			continue
		}
		if err := askOnce(ctx, out, line); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}
