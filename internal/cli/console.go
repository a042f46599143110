package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console writes styled status lines and tables to an interactive output.
// It is safe for concurrent use; each call writes whole lines.
type Console struct {
	mu sync.Mutex
	w  io.Writer
	r  *lipgloss.Renderer
}

// NewConsole returns a console writing to w. Color support is detected
// from w, so a non-terminal writer gets plain text.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, r: lipgloss.NewRenderer(w)}
}

// Discard returns a console that drops all output.
func Discard() *Console {
	return NewConsole(io.Discard)
}

// Print writes s verbatim.
func (c *Console) Print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, s)
}

// Line writes one line in the given color. An empty color writes plain text.
func (c *Console) Line(color lipgloss.Color, bold bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if color != "" || bold {
		style := c.r.NewStyle().Bold(bold)
		if color != "" {
			style = style.Foreground(color)
		}
		msg = style.Render(msg)
	}
	c.Print(msg + "\n")
}

// Blank writes an empty line.
func (c *Console) Blank() {
	c.Print("\n")
}

// Info writes a bold blue line.
func (c *Console) Info(format string, args ...any) {
	c.Line(ColorBlue, true, format, args...)
}

// Success writes a bold green line.
func (c *Console) Success(format string, args ...any) {
	c.Line(ColorGreen, true, format, args...)
}

// Warn writes a yellow line.
func (c *Console) Warn(format string, args ...any) {
	c.Line(ColorYellow, false, format, args...)
}

// Error writes a red line.
func (c *Console) Error(format string, args ...any) {
	c.Line(ColorRed, false, format, args...)
}

// Dim writes a low-contrast line.
func (c *Console) Dim(format string, args ...any) {
	c.Line(ColorTextDim, false, format, args...)
}
