package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const expiredMessage = "Your session has expired. Please log in again."

var (
	warningColor = lipgloss.Color("#F59E0B")

	noticeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warningColor).
			Foreground(warningColor).
			Bold(true).
			Padding(0, 1)
)

// TerminalNotifier prints the expiry notice as a styled banner.
type TerminalNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminalNotifier(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{w: w}
}

func (n *TerminalNotifier) ShowExpiredNotice(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, noticeStyle.Render(expiredMessage))
}
