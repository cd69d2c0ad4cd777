// Package upload pushes local image files to the service's upload endpoint
// and returns the served reference URLs used in multi-modal messages.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/ikmalsaid/mindful-agents/internal/preset"
)

// ErrUpload marks any failure to get a file uploaded: unreadable local
// file, network failure, non-OK status, or a response without the expected
// reference field.
var ErrUpload = errors.New("upload: request failed")

// The service keys the response by the submitted filename, which is fixed
// regardless of the local file's name.
const (
	fieldName   = "files"
	uploadName  = "file.jpg"
	contentType = "image/jpeg"
)

// Uploads run on their own fixed timeout, independent of the completion
// call's configurable one.
const requestTimeout = 30 * time.Second

// Uploader submits files to the configured upload endpoint. One outbound
// call per Upload; nothing is cached, repeated uploads of the same file are
// re-sent.
type Uploader struct {
	endpoint string
	auth     string
	client   *http.Client
}

// New builds an uploader against the credentials' upload endpoint.
func New(creds preset.Credentials) *Uploader {
	return &Uploader{
		endpoint: creds.UploadURL,
		auth:     creds.Authorization,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// Upload reads the file at path, submits it as a multipart upload, and
// returns the server-assigned reference URL.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrUpload, path, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, uploadName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("%w: building request body: %v", ErrUpload, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: building request body: %v", ErrUpload, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: building request body: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("bearer", u.auth)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: server returned status %d: %s", ErrUpload, resp.StatusCode, msg)
	}

	var refs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&refs); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrUpload, err)
	}

	url := refs[uploadName]
	if url == "" {
		return "", fmt.Errorf("%w: response missing reference for %s", ErrUpload, uploadName)
	}
	return url, nil
}
