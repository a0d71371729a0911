package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/peer"
)

var joinReq orch.JoinRequest

var joinCmd = &cobra.Command{
	Use:   "join CODE",
	Short: "Join a room and read commands from stdin",
	Long: `Join a room over the local data channel. Commands, one per line:

  raise                 ask to speak
  ask QUESTION          send a text question
  approve|decline|answer ID
  show|hide ID          display a text question to the room
  grant|revoke IDENTITY change a student's publish rights
  pending               list pending requests
  members               list the room roster
  captions LANG         switch the caption language you save
  language LANG         change the session language (teacher)
  reconnect             reopen the data channel
  quit`,
	Args: cobra.ExactArgs(1),
	RunE: runJoin,
}

func runJoin(cmd *cobra.Command, args []string) error {
	api, err := newAPI()
	if err != nil {
		return err
	}
	joinReq.RoomCode = args[0]
	joinReq.Org = org

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	out := cmd.OutOrStdout()
	p, err := peer.Join(ctx, api, joinReq, peer.Options{
		OnEvent: func(ev peer.Event) {
			if ev.Notice != nil {
				fmt.Fprintf(out, "* permission %s\n", ev.Notice.Action)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	defer p.Close()
	fmt.Fprintf(out, "joined %s as %s (%s)\n", p.Details.RoomName, p.Details.Identity, p.Self.Role)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	lines := make(chan string)
	go scan(cmd.InOrStdin(), lines)
	for {
		select {
		case err := <-done:
			return err
		case line, ok := <-lines:
			if !ok || line == "quit" {
				return nil
			}
			if err := execute(ctx, p, out, line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func scan(r io.Reader, lines chan<- string) {
	defer close(lines)
	s := bufio.NewScanner(r)
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			lines <- line
		}
	}
}

func execute(ctx context.Context, p *peer.Participant, out io.Writer, line string) error {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch verb {
	case "raise":
		r, err := p.Requests.Submit(ctx, domain.RequestVoice, "")
		if err == nil {
			fmt.Fprintln(out, r.ID)
		}
		return err
	case "ask":
		r, err := p.Requests.Submit(ctx, domain.RequestText, arg)
		if err == nil {
			fmt.Fprintln(out, r.ID)
		}
		return err
	case "approve":
		return p.Requests.Approve(ctx, arg)
	case "decline":
		return p.Requests.Decline(ctx, arg)
	case "answer":
		return p.Requests.MarkAnswered(ctx, arg)
	case "show", "hide":
		return p.Requests.Display(ctx, arg, verb == "show")
	case "grant":
		return p.Grant(ctx, arg)
	case "revoke":
		return p.Revoke(ctx, arg)
	case "pending":
		for _, r := range p.Board.Pending() {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", r.ID, r.Type, r.RequesterName, r.Question)
		}
	case "members":
		for _, m := range p.Members() {
			fmt.Fprintf(out, "%s\t%s\t%s\n", m.Identity, m.Name, m.Role)
		}
	case "captions":
		return p.SetCaptionLanguage(arg)
	case "language":
		return p.SetSessionLanguage(ctx, arg)
	case "reconnect":
		return p.Reconnect(ctx)
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
	return nil
}

func init() {
	joinCmd.Flags().StringVar(&joinReq.ParticipantName, "name", "", "display name")
	joinCmd.Flags().StringVar(&joinReq.Role, "role", "student", "teacher or student")
	joinCmd.Flags().StringVar(&joinReq.Language, "language", "", "caption language")
	joinCmd.Flags().StringVar(&joinReq.PIN, "pin", "", "room PIN")
	joinCmd.Flags().BoolVar(&joinReq.Classroom, "classroom", true, "ad-hoc rooms use classroom rules")
	_ = joinCmd.MarkFlagRequired("name")
}
