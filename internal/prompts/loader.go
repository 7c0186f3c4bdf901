// Package prompts holds the LLM prompt templates used by the collaborator
// packages, one embedded JSON file per concern mapping prompt keys to
// template text.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFS embed.FS

var (
	loadOnce sync.Once
	catalog  map[string]map[string]string
	loadErr  error
)

// load parses every embedded prompt file. The set is fixed at compile time,
// so a single pass covers all later lookups.
func load() {
	catalog = make(map[string]map[string]string)

	entries, err := promptFS.ReadDir(".")
	if err != nil {
		loadErr = err
		return
	}
	for _, entry := range entries {
		data, err := promptFS.ReadFile(entry.Name())
		if err != nil {
			loadErr = fmt.Errorf("failed to read prompt file %s: %w", entry.Name(), err)
			return
		}
		var prompts map[string]string
		if err := json.Unmarshal(data, &prompts); err != nil {
			loadErr = fmt.Errorf("failed to parse prompt file %s: %w", entry.Name(), err)
			return
		}
		catalog[entry.Name()] = prompts
	}
}

// Get returns the template stored under key in the named prompt file
// (e.g. "filtering.json", "decide").
func Get(filename, key string) (string, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return "", loadErr
	}

	prompts, ok := catalog[filename]
	if !ok {
		return "", fmt.Errorf("unknown prompt file %s", filename)
	}
	prompt, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts that ship with the binary. A miss is a
// programming error, so it panics.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(err)
	}
	return prompt
}

// Format substitutes {{.Key}} placeholders with the values in data.
// Placeholders without a matching value are left intact.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{."+key+"}}", value)
	}
	return result
}
