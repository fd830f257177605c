// Package cli is the terminal chat surface: it reads questions and slash
// commands from a stream and renders sessions, answers and follow-ups.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/comigor/unichat/internal/agent"
	"github.com/comigor/unichat/internal/history"
	"github.com/comigor/unichat/internal/knowledge"
)

const timeLayout = "Jan 02, 15:04"

const helpText = `Commands:
  /new           start a new conversation
  /list          list conversations
  /open <n>      switch to conversation n
  /delete <n>    delete conversation n
  /history       show the current conversation
  /quick [n]     list quick questions, or ask quick question n
  /follow <n>    ask suggested follow-up n
  /help          show this help
  /quit          exit
Anything else is sent to the assistant.`

// REPL is a line-oriented chat loop.
type REPL struct {
	store *history.Store
	in    io.Reader
	out   io.Writer

	botColor    *color.Color
	userColor   *color.Color
	dimColor    *color.Color
	noticeColor *color.Color

	followUps []string // suggestions under the last answer shown
}

// New creates a REPL over store reading from in and writing to out.
func New(store *history.Store, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		store:       store,
		in:          in,
		out:         out,
		botColor:    color.New(color.FgCyan),
		userColor:   color.New(color.FgGreen, color.Bold),
		dimColor:    color.New(color.Faint),
		noticeColor: color.New(color.FgRed, color.Bold),
	}
}

// ShowStatus renders the typing indicator. Pass it to agent.WithStatusHandler.
func (r *REPL) ShowStatus(s agent.Status) {
	if s.Thinking {
		r.dimColor.Fprintln(r.out, "Assistant is typing...")
	}
}

// ShowNotice renders a transient notice. Pass it to agent.WithNoticeHandler.
func (r *REPL) ShowNotice(n agent.Notice) {
	r.noticeColor.Fprintf(r.out, "%s: %s\n", n.Title, n.Description)
}

// Run reads lines until the input ends, /quit is entered or ctx is done.
func (r *REPL) Run(ctx context.Context, a *agent.Agent) error {
	r.botColor.Fprintln(r.out, knowledge.Greeting)
	r.printQuick()
	if sess, ok := r.store.Current(); ok && sess.MessageCount > 0 {
		r.dimColor.Fprintf(r.out, "Continuing %q. Type /new to start over or /help for commands.\n", sess.Title)
		r.rememberFollowUps(sess)
	}

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		r.userColor.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			// Stored as typed; only commands are trimmed.
			r.ask(ctx, a, raw)
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, helpText)
		case "/new":
			r.store.CreateSession(ctx)
			r.followUps = nil
			r.dimColor.Fprintln(r.out, "Started a new conversation.")
		case "/list":
			r.list()
		case "/open":
			r.open(ctx, arg)
		case "/delete":
			r.delete(ctx, a, arg)
		case "/history":
			r.printHistory()
		case "/quick":
			if arg == "" {
				r.printQuick()
				continue
			}
			quick := knowledge.QuickQuestions()
			i, err := pick(arg, len(quick))
			if err != nil {
				r.warn(err)
				continue
			}
			r.ask(ctx, a, quick[i].Question)
		case "/follow":
			i, err := pick(arg, len(r.followUps))
			if err != nil {
				r.warn(err)
				continue
			}
			r.ask(ctx, a, r.followUps[i])
		default:
			r.warn(fmt.Errorf("unknown command %s, try /help", cmd))
		}
	}
}

func (r *REPL) ask(ctx context.Context, a *agent.Agent, question string) {
	r.userColor.Fprintf(r.out, "You: %s\n", question)
	reply, err := a.HandleUserMessage(ctx, question)
	switch {
	case errors.Is(err, agent.ErrEmptyMessage):
		return
	case errors.Is(err, agent.ErrBusy):
		r.warn(errors.New("still waiting for the previous answer"))
		return
	case err != nil:
		r.warn(err)
		return
	}
	r.printMessage(reply)
	r.followUps = reply.FollowUpQuestions
	r.printFollowUps()
}

func (r *REPL) list() {
	sessions := r.store.Sessions()
	if len(sessions) == 0 {
		r.dimColor.Fprintln(r.out, "No conversations yet.")
		return
	}
	current := r.store.CurrentID()
	for i, s := range sessions {
		marker := " "
		if s.ID == current {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %s\n", marker, i+1, s.Title)
		r.dimColor.Fprintf(r.out, "      %s · %d messages\n", s.Timestamp.Local().Format(timeLayout), s.MessageCount)
	}
}

func (r *REPL) open(ctx context.Context, arg string) {
	sessions := r.store.Sessions()
	i, err := pick(arg, len(sessions))
	if err != nil {
		r.warn(err)
		return
	}
	r.store.SetCurrent(ctx, sessions[i].ID)
	r.rememberFollowUps(sessions[i])
	r.printHistory()
}

func (r *REPL) delete(ctx context.Context, a *agent.Agent, arg string) {
	sessions := r.store.Sessions()
	i, err := pick(arg, len(sessions))
	if err != nil {
		r.warn(err)
		return
	}
	wasCurrent := sessions[i].ID == r.store.CurrentID()
	a.DeleteSession(ctx, sessions[i].ID)
	r.dimColor.Fprintf(r.out, "Deleted %q.\n", sessions[i].Title)
	if wasCurrent {
		r.followUps = nil
		if sess, ok := r.store.Current(); ok {
			r.rememberFollowUps(sess)
		}
	}
}

func (r *REPL) printHistory() {
	sess, ok := r.store.Current()
	if !ok || len(sess.Messages) == 0 {
		r.dimColor.Fprintln(r.out, "This conversation is empty.")
		return
	}
	r.dimColor.Fprintf(r.out, "== %s ==\n", sess.Title)
	for _, m := range sess.Messages {
		if m.Sender == history.SenderUser {
			r.userColor.Fprintf(r.out, "You: %s\n", m.Text)
			continue
		}
		r.printMessage(m)
	}
	r.printFollowUps()
}

func (r *REPL) printMessage(m history.Message) {
	r.botColor.Fprintf(r.out, "Assistant (%s):\n", m.Timestamp.Local().Format("15:04"))
	fmt.Fprintln(r.out, m.Text)
}

func (r *REPL) printFollowUps() {
	if len(r.followUps) == 0 {
		return
	}
	r.dimColor.Fprintln(r.out, "You might also ask (/follow <n>):")
	for i, q := range r.followUps {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, q)
	}
}

func (r *REPL) printQuick() {
	r.dimColor.Fprintln(r.out, "Quick questions (/quick <n>):")
	for i, q := range knowledge.QuickQuestions() {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, q.Label)
	}
}

// rememberFollowUps offers the follow-ups of the session's last bot message.
func (r *REPL) rememberFollowUps(sess history.Session) {
	r.followUps = nil
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Sender == history.SenderBot {
			r.followUps = sess.Messages[i].FollowUpQuestions
			return
		}
	}
}

func (r *REPL) warn(err error) {
	r.noticeColor.Fprintln(r.out, err.Error())
}

// pick turns a 1-based argument into an index below n.
func pick(arg string, n int) (int, error) {
	if n == 0 {
		return 0, errors.New("nothing to choose from")
	}
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("pick a number from 1 to %d", n)
	}
	return i - 1, nil
}
