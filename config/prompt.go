package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/smallnest/convmem/memory"
	"gopkg.in/yaml.v3"
)

// DefaultPromptKey is the prompt entry used when none is named
const DefaultPromptKey = "ai_assistant_system_prompt_advanced"

// DefaultRole is used when a prompt entry has no role
const DefaultRole = "helpful AI assistant"

// Section is a prompt field written in YAML either as a single string or as
// a list of strings. Lists render as "- item" lines.
type Section struct {
	Items []string
	List  bool
}

// UnmarshalYAML implements yaml.Unmarshaler
func (s *Section) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		s.Items, s.List = []string{v}, false
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		s.Items, s.List = v, true
	default:
		return fmt.Errorf("line %d: prompt section must be a string or a list of strings", node.Line)
	}
	return nil
}

// Empty reports whether the section has no content
func (s Section) Empty() bool {
	for _, item := range s.Items {
		if strings.TrimSpace(item) != "" {
			return false
		}
	}
	return true
}

// String renders the section body
func (s Section) String() string {
	if !s.List {
		return strings.Join(s.Items, "")
	}
	lines := make([]string, len(s.Items))
	for i, item := range s.Items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// PromptConfig describes one system prompt
type PromptConfig struct {
	Role              string  `yaml:"role"`
	StyleOrTone       Section `yaml:"style_or_tone"`
	OutputConstraints Section `yaml:"output_constraints"`
	OutputFormat      Section `yaml:"output_format"`
	Goal              Section `yaml:"goal"`
}

// SystemPrompt assembles the system prompt. A non-empty publication is
// appended between memory.PublicationHeader and memory.PublicationFooter.
func (p PromptConfig) SystemPrompt(publication string) string {
	role := strings.TrimSpace(p.Role)
	if role == "" {
		role = DefaultRole
	}
	role = strings.TrimSuffix(strings.ToLower(role), ".")

	parts := []string{"You are a " + role + "."}
	add := func(leadIn string, s Section) {
		if !s.Empty() {
			parts = append(parts, leadIn+"\n"+s.String())
		}
	}
	add("Adopt the following style or tone:", p.StyleOrTone)
	add("Follow these output constraints:", p.OutputConstraints)
	add("Use the following output format:", p.OutputFormat)
	add("Keep in mind the overall goal:", p.Goal)

	if pub := strings.TrimSpace(publication); pub != "" {
		parts = append(parts, "Base your responses on this publication content:\n\n"+
			memory.PublicationHeader+"\n"+pub+"\n"+memory.PublicationFooter)
	}
	return strings.Join(parts, "\n")
}

// LoadPrompts reads a YAML file mapping prompt keys to prompt configs
func LoadPrompts(path string) (map[string]PromptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}

	prompts := make(map[string]PromptConfig)
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}
	return prompts, nil
}

// LoadSystemPrompt builds the system prompt named key from the prompts file.
// publicationPath may be empty; when set the file must exist.
func LoadSystemPrompt(promptsPath, key, publicationPath string) (string, error) {
	prompts, err := LoadPrompts(promptsPath)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = DefaultPromptKey
	}
	p, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("system prompt config for %q not found", key)
	}

	var publication string
	if publicationPath != "" {
		data, err := os.ReadFile(publicationPath)
		if err != nil {
			return "", fmt.Errorf("failed to read publication: %w", err)
		}
		publication = string(data)
	}
	return p.SystemPrompt(publication), nil
}
