package chat

import (
	"encoding/json"
	"fmt"
)

// Roles a message can carry. The first message of every conversation is the
// system message; user and assistant turns alternate after it.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation. Every message in a
// conversation shares the same ID and Model.
type Message struct {
	ID      string  `json:"id"`
	Role    string  `json:"role"`
	Content Content `json:"content"`
	Model   string  `json:"model"`
}

// Part is one typed element of a multi-modal user message.
type Part struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	FileURL *FileURL `json:"file_url,omitempty"`
}

// FileURL wraps a served image reference.
type FileURL struct {
	URL string `json:"url"`
}

// Part types understood by the service.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// TextPart builds a plain text content part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ImagePart builds an image reference content part.
func ImagePart(url string) Part {
	return Part{Type: PartImageURL, FileURL: &FileURL{URL: url}}
}

// Content is either a plain string (system and assistant turns) or an
// ordered list of typed parts (user turns). On the wire it serializes as a
// JSON string or a JSON array respectively.
type Content struct {
	Text  string
	Parts []Part
}

// Text builds string content.
func Text(s string) Content {
	return Content{Text: s}
}

// Multi builds part-list content. User turns are always part lists on the
// wire, so an empty input still serializes as an array.
func Multi(parts []Part) Content {
	if parts == nil {
		parts = []Part{}
	}
	return Content{Parts: parts}
}

// IsMulti reports whether the content is a part list.
func (c Content) IsMulti() bool {
	return c.Parts != nil
}

// MarshalJSON emits a string or an array depending on the content shape.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts either a string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = Content{Text: text}
		return nil
	}

	var parts []Part
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or a list of parts: %w", err)
	}
	*c = Content{Parts: parts}
	return nil
}
