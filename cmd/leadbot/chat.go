package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/leadbot/internal/config"
	"github.com/MikeSquared-Agency/leadbot/internal/conversation"
	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		Long: `chat runs a single in-memory session against the configured providers.
Commands: /lead shows captured details, /reset starts over, /quit exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			// Logs go to stderr so they do not interleave with the transcript.
			slog.SetDefault(slog.New(newLogHandler(cmd.ErrOrStderr(), cfg.LogLevel)))

			parallel, _ := cmd.Flags().GetBool("parallel")
			c, err := buildCore(cfg, slog.Default())
			if err != nil {
				return err
			}
			coord, err := lead.New(c.operator.Capture, c.extractor, c.responder,
				lead.WithInstructions(c.operator.Prompts.Instructions),
				lead.WithParallel(parallel || cfg.ParallelTurns),
			)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), coord)
		},
	}
	cmd.Flags().Bool("parallel", false, "Run extraction and reply generation concurrently")
	return cmd
}

// runChat reads one utterance per line until EOF or /quit.
func runChat(ctx context.Context, in io.Reader, out io.Writer, coord *lead.Coordinator) error {
	printTurns(out, coord.Snapshot().Transcript)

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
		case "/quit":
			return nil
		case "/reset":
			coord.Reset()
			printTurns(out, coord.Snapshot().Transcript)
			continue
		case "/lead":
			st := coord.Snapshot()
			fmt.Fprintf(out, "status=%s name=%q email=%q turns=%d\n", st.Status, st.Fields.Name, st.Fields.Email, st.TurnCount)
			continue
		}

		before := len(coord.Snapshot().Transcript) + 1
		_, err := coord.HandleTurn(ctx, line)
		if errors.Is(err, lead.ErrInputDisabled) {
			fmt.Fprintln(out, "(input is disabled for this session; /reset to start over)")
			continue
		}
		if err != nil {
			return err
		}
		printTurns(out, coord.Snapshot().Transcript[before:])
	}
}

func printTurns(out io.Writer, turns []conversation.Turn) {
	for _, t := range turns {
		fmt.Fprintf(out, "%s: %s\n", t.Role, t.Text)
	}
}
