// Package preset holds the fixed service configuration: named model
// variants, named agent prompt templates, and the obfuscated endpoint and
// credential strings. The document ships embedded in the binary and is
// decoded exactly once at load time; any defect in it is a configuration
// error that aborts construction.
package preset

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

//go:embed preset.json
var rawPreset []byte

// ErrConfig marks configuration failures: a malformed preset document or a
// lookup of an unknown model or agent name. These are fatal at construction
// time, never recoverable at runtime.
var ErrConfig = errors.New("preset: configuration error")

// AgentCustom is the one agent whose template is parameterized by a
// caller-supplied instruction.
const AgentCustom = "custom"

const instructionPlaceholder = "{system_prompt}"

// Credentials are the decoded locale strings: the authorization header
// value and the two service endpoints. They are owned by the session engine
// and passed by reference to the transport layers.
type Credentials struct {
	Authorization string
	CompletionURL string
	UploadURL     string
}

// Preset is the immutable store of models, agents and credentials.
type Preset struct {
	models map[string]string
	agents map[string]string
	creds  Credentials
}

type document struct {
	Model  map[string]string `json:"model"`
	Agent  map[string]string `json:"agent"`
	Locale []string          `json:"locale"`
}

// Load parses the embedded preset document and decodes the locale strings.
func Load() (*Preset, error) {
	var doc document
	if err := json.Unmarshal(rawPreset, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing preset document: %v", ErrConfig, err)
	}
	if len(doc.Model) == 0 || len(doc.Agent) == 0 {
		return nil, fmt.Errorf("%w: preset document missing model or agent mappings", ErrConfig)
	}
	if len(doc.Locale) != 3 {
		return nil, fmt.Errorf("%w: expected 3 locale entries, got %d", ErrConfig, len(doc.Locale))
	}

	decoded := make([]string, len(doc.Locale))
	for i, entry := range doc.Locale {
		val, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding locale entry %d: %v", ErrConfig, i, err)
		}
		decoded[i] = string(val)
	}

	return &Preset{
		models: doc.Model,
		agents: doc.Agent,
		creds: Credentials{
			Authorization: decoded[0],
			CompletionURL: decoded[1],
			UploadURL:     decoded[2],
		},
	}, nil
}

// Model resolves a short model name to its opaque service identifier.
func (p *Preset) Model(name string) (string, error) {
	id, ok := p.models[name]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: unknown model %q", ErrConfig, name)
	}
	return id, nil
}

// Agent resolves an agent name to its system prompt. For the custom agent a
// non-empty instruction is substituted into the template; every other agent
// is a fixed string and ignores the instruction.
func (p *Preset) Agent(name, instruction string) (string, error) {
	template, ok := p.agents[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown agent %q", ErrConfig, name)
	}
	if name == AgentCustom && instruction != "" {
		return strings.ReplaceAll(template, instructionPlaceholder, instruction), nil
	}
	return template, nil
}

// Agents lists the available agent names.
func (p *Preset) Agents() []string {
	names := make([]string, 0, len(p.agents))
	for name := range p.agents {
		names = append(names, name)
	}
	return names
}

// Credentials returns the decoded endpoint and authorization values.
func (p *Preset) Credentials() Credentials {
	return p.creds
}
