package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hostpilot/internal/orchestrator"
)

const replPrompt = "hostpilot> "

// NewREPLCmd 创建 repl 命令：交互式会话，所有命令共享同一个会话
func NewREPLCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive command session",
		Long: `Start an interactive command session.

Every line is one command. Type :session to show the session state,
exit or quit (or Ctrl-D) to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			app, err := cliCtx.GetApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := &repl{
				handle:     app.Orchestrator.Handle,
				session:    app.Orchestrator.Session,
				jsonOutput: jsonOutput,
			}

			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return r.loop(ctx, lineScanner{bufio.NewScanner(cmd.InOrStdin())}, cmd.OutOrStdout())
			}

			// 终端模式下由 term.Terminal 负责行编辑和历史
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				return fmt.Errorf("enter raw mode: %w", err)
			}
			defer term.Restore(fd, oldState)

			t := term.NewTerminal(struct {
				io.Reader
				io.Writer
			}{os.Stdin, os.Stdout}, replPrompt)
			fmt.Fprintln(t, "Type a command, or exit to quit.")
			return r.loop(ctx, t, t)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// lineReader 逐行读取输入，*term.Terminal 满足该接口
type lineReader interface {
	ReadLine() (string, error)
}

type lineScanner struct {
	s *bufio.Scanner
}

func (l lineScanner) ReadLine() (string, error) {
	if l.s.Scan() {
		return l.s.Text(), nil
	}
	if err := l.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type repl struct {
	handle     func(ctx context.Context, text string) orchestrator.Response
	session    func() orchestrator.SessionContext
	jsonOutput bool
}

func (r *repl) loop(ctx context.Context, in lineReader, out io.Writer) error {
	for ctx.Err() == nil {
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case ":session":
			r.printSession(out)
			continue
		}

		if err := printResponse(out, r.handle(ctx, line), r.jsonOutput); err != nil {
			return err
		}
	}
	return nil
}

func (r *repl) printSession(out io.Writer) {
	s := r.session()
	fmt.Fprintf(out, "Session:  %s\n", s.SessionID)
	fmt.Fprintf(out, "Started:  %s\n", s.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Commands: %d\n", s.CommandCount)
	if s.LastResult != nil {
		fmt.Fprintf(out, "Last:     [%s] %s\n", s.LastResult.Status, s.LastResult.Response)
	}
}
