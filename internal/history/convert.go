package history

import (
	"os"
	"strings"

	"github.com/ikmalsaid/mindful-agents/internal/chat"
)

// export renders the transcript into the configured auxiliary format next
// to its JSON file.
func (s *Store) export(history []chat.Message, jsonPath string) error {
	base := strings.TrimSuffix(jsonPath, ".json")

	switch s.format {
	case FormatText:
		return os.WriteFile(base+".txt", renderText(history), 0o644)
	case FormatMarkdown:
		return os.WriteFile(base+".md", renderMarkdown(history), 0o644)
	}
	return nil
}

// renderText emits one "ROLE: content" line per message.
func renderText(history []chat.Message) []byte {
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(strings.ToUpper(msg.Role))
		b.WriteString(": ")
		b.WriteString(textContent(msg.Content))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func textContent(c chat.Content) string {
	if !c.IsMulti() {
		return c.Text
	}
	parts := make([]string, 0, len(c.Parts))
	for _, part := range c.Parts {
		switch part.Type {
		case chat.PartText:
			parts = append(parts, part.Text)
		case chat.PartImageURL:
			parts = append(parts, "[Image: "+partURL(part)+"]")
		}
	}
	return strings.Join(parts, " ")
}

// renderMarkdown emits a "# Chat History" document with one section per
// message and inline image embeds.
func renderMarkdown(history []chat.Message) []byte {
	var b strings.Builder
	b.WriteString("# Chat History\n\n")
	for _, msg := range history {
		b.WriteString("### ")
		b.WriteString(titleCase(msg.Role))
		b.WriteString("\n")
		b.WriteString(markdownContent(msg.Content))
		b.WriteString("\n\n")
	}
	return []byte(b.String())
}

func markdownContent(c chat.Content) string {
	if !c.IsMulti() {
		return c.Text
	}
	parts := make([]string, 0, len(c.Parts))
	for _, part := range c.Parts {
		switch part.Type {
		case chat.PartText:
			parts = append(parts, part.Text)
		case chat.PartImageURL:
			parts = append(parts, "\n![Image]("+partURL(part)+")\n")
		}
	}
	return strings.Join(parts, "\n")
}

func partURL(part chat.Part) string {
	if part.FileURL == nil || part.FileURL.URL == "" {
		return "No URL"
	}
	return part.FileURL.URL
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
