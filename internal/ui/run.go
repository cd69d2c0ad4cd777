package ui

import (
	"context"
	"strings"
	"time"

	"github.com/ikmalsaid/mindful-agents/internal/chat"
)

// Session is the slice of the engine the UI consumes.
type Session interface {
	Complete(ctx context.Context, prompt string, images []string, hist []chat.Message) (string, []chat.Message, error)
	LoadHistory(path string) ([]chat.Message, error)
}

// Run drives the interactive conversation loop until the user exits or the
// context is cancelled. Accumulated history is kept across turns, and a
// failed turn keeps the history as it stood so the user can retry.
func Run(ctx context.Context, engine Session, model, agent string) error {
	display := NewDisplay()
	display.PrintWelcome(model, agent)

	var hist []chat.Message

	for {
		select {
		case <-ctx.Done():
			display.PrintGoodbye()
			return ctx.Err()
		default:
		}

		display.PrintPrompt()
		query, err := ReadInput()
		if err != nil {
			display.PrintGoodbye()
			return nil
		}

		switch {
		case query == "/exit" || query == "/quit" || query == "exit" || query == "quit":
			display.PrintGoodbye()
			return nil
		case query == "/clear":
			display.ClearScreen()
			display.PrintWelcome(model, agent)
			hist = nil
			continue
		case query == "/history":
			if len(hist) == 0 {
				display.PrintInfo("no messages in this conversation yet")
				continue
			}
			display.PrintHistory(hist)
			continue
		case strings.HasPrefix(query, "/load "):
			path := strings.TrimSpace(strings.TrimPrefix(query, "/load "))
			loaded, err := engine.LoadHistory(path)
			if err != nil {
				display.PrintError(err)
				continue
			}
			hist = loaded
			display.PrintInfo("loaded conversation " + hist[0].ID)
			continue
		case strings.TrimSpace(query) == "":
			continue
		}

		prompt, images := ParseQuery(query)

		answer, next, err := engine.Complete(ctx, prompt, images, hist)
		hist = next
		if err != nil {
			display.PrintError(err)
			continue
		}

		display.PrintAnswer(answer, time.Now())
	}
}

// ParseQuery pulls @path mentions out of the query. The remaining words
// form the text prompt; the paths are uploaded as image attachments in the
// order mentioned.
func ParseQuery(query string) (prompt string, images []string) {
	var words []string
	for _, word := range strings.Fields(query) {
		if strings.HasPrefix(word, "@") && len(word) > 1 {
			images = append(images, strings.Trim(strings.TrimPrefix(word, "@"), `"'`))
			continue
		}
		words = append(words, word)
	}
	return strings.Join(words, " "), images
}
