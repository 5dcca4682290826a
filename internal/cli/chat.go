package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"notra-backend/internal/chatui"
	"notra-backend/internal/models"
)

type chatOptions struct {
	URL      string
	Provider string
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running bridge from the terminal",
		Long: `Chat with a running bridge from the terminal.

Commands:
  /provider <id>  switch provider for the next message
  /quit, /exit    leave the chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "http://localhost:8080", "bridge base URL")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "provider id (default: server default)")
	return cmd
}

func runChat(cmd *cobra.Command, opts *chatOptions) error {
	out := cmd.OutOrStdout()
	endpoint := strings.TrimRight(opts.URL, "/") + "/api/chat"

	session := chatui.NewSession(endpoint, opts.Provider, &http.Client{})
	view := newTranscript(out)
	session.OnUpdate = view.update
	view.update(session.Messages())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/provider"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/provider"))
			session.SetProvider(id)
			fmt.Fprintf(out, "provider: %s", defaultLabel(id))
			continue
		}

		err := session.Submit(cmd.Context(), line)
		if err != nil && !errors.Is(err, chatui.ErrSuperseded) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nerror: %v", err)
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func defaultLabel(id string) string {
	if id == "" {
		return "(server default)"
	}
	return id
}

// transcript prints conversation snapshots incrementally: new assistant
// text is appended as it streams in, user input is never echoed, and a
// message whose content was replaced rather than extended is reprinted.
type transcript struct {
	out io.Writer

	mu     sync.Mutex
	shown  []string
	headed []bool
}

func newTranscript(out io.Writer) *transcript {
	return &transcript{out: out}
}

func (t *transcript) update(conv models.Conversation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, m := range conv {
		if i == len(t.shown) {
			t.shown = append(t.shown, "")
			t.headed = append(t.headed, false)
			if m.Role == models.RoleUser {
				t.shown[i] = m.Content
				continue
			}
		}

		prev := t.shown[i]
		if m.Content == prev || m.Role == models.RoleUser {
			continue
		}

		switch {
		case !t.headed[i]:
			fmt.Fprintf(t.out, "%s %s", chatui.AssistantEmoji(m.Content, i), m.Content)
			t.headed[i] = true
		case strings.HasPrefix(m.Content, prev):
			fmt.Fprint(t.out, m.Content[len(prev):])
		default:
			fmt.Fprintf(t.out, "\n%s %s", chatui.AssistantEmoji(m.Content, i), m.Content)
		}
		t.shown[i] = m.Content
	}
}
