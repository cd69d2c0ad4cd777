// Package ui is the interactive terminal front end. It consumes the
// session engine purely through its Complete and LoadHistory contract and
// renders assistant replies as markdown.
package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/ikmalsaid/mindful-agents/internal/chat"
)

// Display handles terminal output with colors and markdown rendering.
type Display struct {
	width    int
	renderer *glamour.TermRenderer
}

// Color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// NewDisplay creates a display sized to the current terminal.
func NewDisplay() *Display {
	width := terminalWidth()
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-10),
	)
	return &Display{width: width, renderer: renderer}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// PrintWelcome displays the welcome banner.
func (d *Display) PrintWelcome(model, agent string) {
	fmt.Printf("%s╔════════════════════════════════════════╗%s\n", colorCyan, colorReset)
	fmt.Printf("%s║          mindful-agents chat           ║%s\n", colorCyan, colorReset)
	fmt.Printf("%s╚════════════════════════════════════════╝%s\n", colorCyan, colorReset)
	fmt.Printf("\n%sModel: %s · Agent: %s%s\n", colorGray, model, agent, colorReset)
	fmt.Printf("%sCommands:%s /exit | /clear | /history | /load <file> | attach images with @path\n\n", colorGray, colorReset)
}

// PrintGoodbye displays the goodbye message.
func (d *Display) PrintGoodbye() {
	fmt.Printf("\n%sGoodbye!%s\n", colorCyan, colorReset)
}

// PrintError displays an error message.
func (d *Display) PrintError(err error) {
	fmt.Printf("%s✗ Error: %v%s\n", colorRed, err, colorReset)
}

// PrintInfo displays an info message.
func (d *Display) PrintInfo(msg string) {
	fmt.Printf("%sℹ %s%s\n", colorCyan, msg, colorReset)
}

// PrintWarning displays a warning message.
func (d *Display) PrintWarning(msg string) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, msg, colorReset)
}

// PrintPrompt displays the user input prompt.
func (d *Display) PrintPrompt() {
	fmt.Printf("\n%s%s❯%s ", colorBold, colorGreen, colorReset)
}

// PrintAnswer renders the assistant reply as markdown, falling back to the
// raw text when rendering fails.
func (d *Display) PrintAnswer(answer string, at time.Time) {
	fmt.Printf("\n%s┌─ Assistant · %s%s\n", colorGray, at.Format("15:04:05"), colorReset)
	rendered, err := d.renderer.Render(answer)
	if err != nil {
		fmt.Printf("%sAssistant:%s %s\n", colorBlue, colorReset, answer)
		return
	}
	fmt.Print(rendered)
}

// PrintHistory dumps the accumulated conversation, one line per message.
func (d *Display) PrintHistory(hist []chat.Message) {
	fmt.Printf("\n%s┌─ History · %d messages%s\n", colorGray, len(hist), colorReset)
	fmt.Print(FormatHistory(hist))
	fmt.Printf("%s└%s\n", colorGray, colorReset)
}

// FormatHistory renders a transcript as "ROLE: content" lines with image
// parts shown by their served URL.
func FormatHistory(hist []chat.Message) string {
	var b strings.Builder
	for _, msg := range hist {
		b.WriteString(strings.ToUpper(msg.Role))
		b.WriteString(": ")
		if !msg.Content.IsMulti() {
			b.WriteString(msg.Content.Text)
			b.WriteString("\n")
			continue
		}
		parts := make([]string, 0, len(msg.Content.Parts))
		for _, part := range msg.Content.Parts {
			switch part.Type {
			case chat.PartText:
				parts = append(parts, part.Text)
			case chat.PartImageURL:
				url := "No URL"
				if part.FileURL != nil && part.FileURL.URL != "" {
					url = part.FileURL.URL
				}
				parts = append(parts, "[Image: "+url+"]")
			}
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("\n")
	}
	return b.String()
}

// ClearScreen clears the terminal.
func (d *Display) ClearScreen() {
	fmt.Print("\033[2J\033[H")
}

// ReadInput reads one trimmed line from the user.
func ReadInput() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
