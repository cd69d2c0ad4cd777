package session

import (
	"encoding/json"
	"mime/multipart"

	"github.com/ikmalsaid/mindful-agents/internal/chat"
)

// completionRequest is the JSON document submitted under the "data" form
// field of the completion call.
type completionRequest struct {
	ID       string         `json:"id"`
	Messages []chat.Message `json:"messages"`
	Model    string         `json:"model"`
	Stream   bool           `json:"stream"`
}

// writeFields fills the multipart body the completion endpoint expects:
// a fixed model_version marker and the serialized conversation. The writer
// is closed so the terminating boundary is written.
func writeFields(w *multipart.Writer, payload completionRequest) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := w.WriteField("model_version", "1"); err != nil {
		return err
	}
	if err := w.WriteField("data", string(data)); err != nil {
		return err
	}
	return w.Close()
}
