// Package session orchestrates one conversational turn: task identity,
// image upload resolution, the completion call, stream decoding, and
// persistence of the grown transcript.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ikmalsaid/mindful-agents/internal/chat"
	"github.com/ikmalsaid/mindful-agents/internal/config"
	"github.com/ikmalsaid/mindful-agents/internal/history"
	"github.com/ikmalsaid/mindful-agents/internal/preset"
	"github.com/ikmalsaid/mindful-agents/internal/stream"
	"github.com/ikmalsaid/mindful-agents/internal/task"
	"github.com/ikmalsaid/mindful-agents/internal/upload"
)

// ErrConnectivity marks a failed startup connectivity probe. Fatal at
// construction, like any configuration error.
var ErrConnectivity = errors.New("session: no network connectivity")

// ErrTransport marks a completion request that failed in flight.
var ErrTransport = errors.New("session: completion request failed")

const probeTimeout = 10 * time.Second

// Engine runs conversational turns against the completion endpoint. It is
// synchronous and single-caller: one request in flight per Complete, and
// callers must serialize access to a given conversation.
type Engine struct {
	model    string
	agent    string
	creds    preset.Credentials
	client   *http.Client
	uploader *upload.Uploader
	store    *history.Store
	logger   *slog.Logger
}

// Options are the resolved inputs NewEngine assembles an engine from.
type Options struct {
	Model        string // opaque model identifier
	SystemPrompt string
	Credentials  preset.Credentials
	Timeout      time.Duration
	Store        *history.Store
	Logger       *slog.Logger
}

// NewEngine wires an engine from already-resolved options. Most callers
// want New, which resolves them from a Config and a Preset.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		model:    opts.Model,
		agent:    opts.SystemPrompt,
		creds:    opts.Credentials,
		client:   &http.Client{Timeout: opts.Timeout},
		uploader: upload.New(opts.Credentials),
		store:    opts.Store,
		logger:   logger,
	}
}

// New validates the configuration, probes connectivity, resolves the model
// and agent through the preset store and returns a ready engine. Any
// failure here is fatal; nothing is retried.
func New(cfg *config.Config, p *preset.Preset, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", preset.ErrConfig, err)
	}
	if err := checkOnline(cfg.ProbeURL); err != nil {
		return nil, err
	}

	model, err := p.Model(cfg.Model)
	if err != nil {
		return nil, err
	}

	agent := cfg.Agent
	if cfg.Instruction != "" {
		logger.Info("system prompt provided, setting agent to custom")
		agent = preset.AgentCustom
	}
	systemPrompt, err := p.Agent(agent, cfg.Instruction)
	if err != nil {
		return nil, err
	}

	format, ok := history.ParseFormat(cfg.SaveAs)
	if !ok {
		logger.Warn("invalid save format, defaulting to json", "save_as", cfg.SaveAs)
	}

	engine := NewEngine(Options{
		Model:        model,
		SystemPrompt: systemPrompt,
		Credentials:  p.Credentials(),
		Timeout:      cfg.Timeout,
		Store:        history.NewStore(cfg.SaveRoot(), format, logger),
		Logger:       logger,
	})
	logger.Info("session engine is ready", "model", cfg.Model, "agent", agent)
	return engine, nil
}

// checkOnline verifies an active network connection by fetching the probe
// URL once.
func checkOnline(url string) error {
	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	resp.Body.Close()
	return nil
}

// Complete runs one conversational turn. With a non-empty hist the task id
// and system prompt of hist[0] are reused; otherwise a fresh task id is
// minted and a system message synthesized from the engine's agent prompt.
// The user turn is appended (text part first, then one image part per
// uploaded path, in order), the completion endpoint is called, and the
// decoded assistant reply is appended and persisted.
//
// A failed turn never loses state: the error is logged with the task id and
// returned together with the history as it stood at the point of failure,
// so the caller can retry with it. The answer is empty exactly when err is
// non-nil.
func (e *Engine) Complete(ctx context.Context, prompt string, images []string, hist []chat.Message) (string, []chat.Message, error) {
	start := time.Now()

	var taskID, systemPrompt string
	if len(hist) > 0 {
		taskID = hist[0].ID
		systemPrompt = hist[0].Content.Text
	}

	logger := e.logger
	if taskID == "" {
		taskID = task.NewID()
		systemPrompt = e.agent
		logger = logger.With("task_id", taskID)
		logger.Info("created task id with initialized system prompt")
	} else {
		logger = logger.With("task_id", taskID)
		logger.Info("using existing task id and system prompt from history")
	}

	if len(hist) == 0 {
		hist = []chat.Message{{
			ID:      taskID,
			Role:    chat.RoleSystem,
			Content: chat.Text(systemPrompt),
			Model:   e.model,
		}}
	}

	var parts []chat.Part
	if prompt != "" {
		parts = append(parts, chat.TextPart(prompt))
	}
	for _, path := range images {
		url, err := e.uploader.Upload(ctx, path)
		if err != nil {
			logger.Error("turn failed", "error", err)
			return "", hist, err
		}
		parts = append(parts, chat.ImagePart(url))
		logger.Info("added image to message content", "path", path)
	}

	hist = append(hist, chat.Message{
		ID:      taskID,
		Role:    chat.RoleUser,
		Content: chat.Multi(parts),
		Model:   e.model,
	})

	answer, err := e.requestCompletion(ctx, taskID, hist)
	if err != nil {
		logger.Error("turn failed", "error", err)
		return "", hist, err
	}

	hist = append(hist, chat.Message{
		ID:      taskID,
		Role:    chat.RoleAssistant,
		Content: chat.Text(answer),
		Model:   e.model,
	})

	if err := e.store.Save(hist); err != nil {
		logger.Error("turn failed", "error", err)
		return "", hist, err
	}

	logger.Info("request completed", "duration", time.Since(start).Round(time.Millisecond).String())
	return answer, hist, nil
}

// LoadHistory reads a previously saved transcript so a conversation can be
// continued across invocations.
func (e *Engine) LoadHistory(path string) ([]chat.Message, error) {
	return e.store.Load(path)
}

// Store exposes the history store for collaborators that render saved
// transcripts.
func (e *Engine) Store() *history.Store {
	return e.store
}

// requestCompletion submits the serialized conversation as a multipart POST
// and decodes the chunked reply into the final answer.
func (e *Engine) requestCompletion(ctx context.Context, taskID string, hist []chat.Message) (string, error) {
	payload := completionRequest{
		ID:       taskID,
		Messages: hist,
		Model:    e.model,
		Stream:   false,
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writeFields(writer, payload); err != nil {
		return "", fmt.Errorf("%w: building request body: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.creds.CompletionURL, &body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("bearer", e.creds.Authorization)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: server returned status %d: %s", ErrTransport, resp.StatusCode, msg)
	}

	answer, err := stream.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response stream: %v", ErrTransport, err)
	}
	return answer, nil
}
