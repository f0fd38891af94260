package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/viVeK21111/chatgpt-clone/internal/chat"
	"github.com/viVeK21111/chatgpt-clone/internal/conversation"
)

const chatHelp = `commands:
  /new            start a new chat
  /sessions       list chats
  /switch N       open chat N from /sessions
  /image PROMPT   generate an image description
  /quit           exit
anything else is sent as a message`

func newChatCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Log in and chat interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password := v.GetString("username"), v.GetString("password")
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}

			ctx := cmd.Context()
			client := newClient(v)
			res, err := client.Login(ctx, username, password)
			if err != nil {
				return err
			}

			coord := conversation.NewCoordinator(client, client, conversation.NewState(), v.GetDuration("timeout"))
			r := &repl{coord: coord, out: cmd.OutOrStdout()}
			if _, err := coord.LoadSessions(ctx, res.Account.ID); err != nil {
				r.printError()
				return err
			}

			fmt.Fprintf(r.out, "logged in as %s\n%s\n", res.Account.Username, chatHelp)
			r.printTranscript()
			return r.run(ctx, cmd.InOrStdin())
		},
	}
}

type repl struct {
	coord *conversation.Coordinator
	out   io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if quit := r.handle(ctx, line); quit {
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) bool {
	state := r.coord.State()
	state.ClearError()

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/sessions":
		r.printSessions()
	case "/new":
		if err := r.coord.NewSession(ctx); err != nil {
			r.printError()
			break
		}
		fmt.Fprintln(r.out, "new chat started")
	case "/switch":
		n, err := strconv.Atoi(rest)
		sessions := state.Snapshot().Sessions
		if err != nil || n < 1 || n > len(sessions) {
			fmt.Fprintln(r.out, "usage: /switch N (see /sessions)")
			break
		}
		if err := r.coord.SelectSession(ctx, sessions[n-1]); err != nil {
			r.printError()
			break
		}
		r.printTranscript()
	case "/image":
		fmt.Fprintln(r.out, "generating image...")
		turn, err := r.coord.SubmitImage(ctx, rest)
		r.printTurn(turn, err)
	default:
		turn, err := r.coord.SubmitText(ctx, line)
		r.printTurn(turn, err)
	}
	return false
}

func (r *repl) printTurn(turn *conversation.Turn, err error) {
	if turn == nil {
		if errors.Is(err, conversation.ErrEmptyPrompt) {
			fmt.Fprintln(r.out, "prompt is empty")
		} else if errors.Is(err, conversation.ErrTurnInFlight) {
			fmt.Fprintln(r.out, "still waiting for the previous reply")
		} else if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		return
	}
	if turn.State == conversation.TurnRolledBack {
		r.printError()
		return
	}
	fmt.Fprintf(r.out, "assistant: %s\n", turn.Response)
	if err != nil {
		r.printError()
	}
}

func (r *repl) printSessions() {
	snap := r.coord.State().Snapshot()
	for i, s := range snap.Sessions {
		mark := " "
		if snap.Active != nil && snap.Active.SessionID == s.SessionID {
			mark = "*"
		}
		fmt.Fprintf(r.out, "%s %d. %s  (%s)\n", mark, i+1, sessionTitle(s), s.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func (r *repl) printTranscript() {
	snap := r.coord.State().Snapshot()
	if snap.Active != nil {
		fmt.Fprintf(r.out, "-- %s --\n", sessionTitle(*snap.Active))
	}
	for _, m := range snap.Messages {
		fmt.Fprintf(r.out, "%s: %s\n", m.Role, m.Content)
	}
}

func (r *repl) printError() {
	if msg := r.coord.State().Snapshot().Error; msg != "" {
		fmt.Fprintf(r.out, "! %s\n", msg)
	}
}

func sessionTitle(s chat.Session) string {
	if s.Title == "" {
		return "New chat"
	}
	return s.Title
}
