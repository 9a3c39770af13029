package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"

	"github.com/aretw0/lattice/pkg/ports"
)

// Notifier prints notifications as colored one-line toasts.
type Notifier struct {
	mu  sync.Mutex
	out *termenv.Output
}

// NewNotifier writes to w, with colors only when w supports them.
func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{out: termenv.NewOutput(w)}
}

var levelStyle = map[ports.Level]struct {
	icon  string
	color string
}{
	ports.LevelInfo:    {"i", "#60a5fa"},
	ports.LevelSuccess: {"✓", "#34d399"},
	ports.LevelWarning: {"!", "#fbbf24"},
	ports.LevelError:   {"✗", "#f87171"},
}

// Notify implements ports.Notifier.
func (n *Notifier) Notify(_ context.Context, note ports.Notification) {
	style, ok := levelStyle[note.Level]
	if !ok {
		style = levelStyle[ports.LevelInfo]
	}

	head := n.out.String(fmt.Sprintf("%s %s", style.icon, note.Title)).
		Foreground(n.out.Color(style.color)).
		Bold()

	n.mu.Lock()
	defer n.mu.Unlock()
	if note.Message == "" {
		fmt.Fprintln(n.out, head)
		return
	}
	fmt.Fprintf(n.out, "%s: %s\n", head, note.Message)
}
