package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultEOS is the end-of-text token of the GPT-2 vocabulary, shared by
// distilgpt2.
const DefaultEOS = "<|endoftext|>"

// ErrNoEOS is returned when a tokenizer directory declares no eos_token.
var ErrNoEOS = errors.New("tokenizer declares no eos_token")

// tokenizerFiles are searched in order for an eos_token entry.
var tokenizerFiles = []string{"special_tokens_map.json", "tokenizer_config.json"}

// LoadEOS reads the end-of-text token from a Hugging Face tokenizer
// directory.  An empty dir selects DefaultEOS.
func LoadEOS(dir string) (string, error) {
	if dir == "" {
		return DefaultEOS, nil
	}
	for _, name := range tokenizerFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		tok, err := parseEOS(data)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", fmt.Errorf("%s: %w", dir, ErrNoEOS)
}

// parseEOS accepts eos_token either as a string or as an AddedToken object.
func parseEOS(data []byte) (string, error) {
	var doc struct {
		EOS json.RawMessage `json:"eos_token"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	if len(doc.EOS) == 0 || string(doc.EOS) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(doc.EOS, &s); err == nil {
		return s, nil
	}
	var tok struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(doc.EOS, &tok); err != nil {
		return "", fmt.Errorf("eos_token: %w", err)
	}
	return tok.Content, nil
}
