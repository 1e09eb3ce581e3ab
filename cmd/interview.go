package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tachyon/constellation/internal/expand"
	"tachyon/constellation/internal/session"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Answer the financing interview and load the root scenarios",
	Long: `Runs the interview against the recommendation service. Each answer is sent as
it is entered; when the service reports the interview complete, its scenarios
replace the current constellation. Type "quit" to stop early.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		lr, err := newLineReader(os.Stdin)
		if err != nil {
			return err
		}
		defer lr.Close()

		return runInterview(cmd.Context(), a, lr, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)
}

// lineReader is satisfied by *readline.Instance and by scanReader for piped input
type lineReader interface {
	Readline() (string, error)
	Close() error
}

type scanReader struct{ sc *bufio.Scanner }

func (s scanReader) Readline() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (scanReader) Close() error { return nil }

func newLineReader(in *os.File) (lineReader, error) {
	if !isatty.IsTerminal(in.Fd()) && !isatty.IsCygwinTerminal(in.Fd()) {
		return scanReader{sc: bufio.NewScanner(in)}, nil
	}
	cfg := &readline.Config{
		Prompt:          "you> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.HistoryFile = filepath.Join(dir, "tachyon", "interview_history")
		_ = os.MkdirAll(filepath.Dir(cfg.HistoryFile), 0o755)
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing readline: %w", err)
	}
	return rl, nil
}

func runInterview(ctx context.Context, a *app, lr lineReader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m := session.NewMachine(nil)
	fail := func(err error) error {
		m.Fire(session.Fail{Err: err})
		fmt.Fprintln(out, expand.Message(err))
		return err
	}
	recorded := 0
	record := func(s session.State) error {
		iv, ok := s.(session.Interviewing)
		if !ok {
			return nil
		}
		for _, t := range iv.Transcript[recorded:] {
			if err := a.db.AppendTurn(t); err != nil {
				return err
			}
		}
		recorded = len(iv.Transcript)
		return nil
	}

	if _, err := m.Fire(session.Login{}); err != nil {
		return err
	}
	start, err := a.client.StartInterview(ctx)
	if err != nil {
		return fail(err)
	}
	if err := a.db.SaveInterview(start.SessionID); err != nil {
		return err
	}
	st, err := m.Fire(session.Started{SessionID: start.SessionID, Question: start.Question})
	if err != nil {
		return err
	}
	if err := record(st); err != nil {
		return err
	}
	fmt.Fprintf(out, "agent> %s\n", start.Question)

	for {
		line, err := lr.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "Interview stopped before completion.")
			return nil
		}
		if err != nil {
			return err
		}
		answer := strings.TrimSpace(line)
		switch answer {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Interview stopped before completion.")
			return nil
		}

		resp, err := a.client.SubmitAnswer(ctx, start.SessionID, answer)
		if err != nil {
			return fail(err)
		}
		next := ""
		if !resp.IsComplete {
			next = resp.Prompt()
		}
		st, err := m.Fire(session.Answered{Answer: answer, Next: next})
		if err != nil {
			return err
		}
		if err := record(st); err != nil {
			return err
		}
		if v := resp.Validation; v != nil && v.Suggestion != "" {
			fmt.Fprintf(out, "hint> %s\n", v.Suggestion)
		}
		if !resp.IsComplete {
			fmt.Fprintf(out, "agent> %s\n", next)
			continue
		}
		break
	}

	if _, err := m.Fire(session.Completed{}); err != nil {
		return err
	}
	fmt.Fprintln(out, "Building your constellation...")
	status, err := a.client.Status(ctx, start.SessionID)
	if err != nil {
		return fail(err)
	}
	roots, err := a.store.LoadRoots(status.Scenarios)
	if err != nil {
		return fail(err)
	}
	if err := a.save(); err != nil {
		return err
	}
	if _, err := m.Fire(session.Loaded{}); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d scenarios loaded:\n", len(roots))
	for _, n := range roots {
		fmt.Fprintf(out, "  #%-3d %s  %s  [%s, %s]\n", n.ID, n.Label, n.PriceRange, n.PlanType, n.Affordability)
	}
	fmt.Fprintln(out, "\nRun `constellation expand <id>` to explore a scenario.")
	return nil
}
