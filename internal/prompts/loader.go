// Package prompts holds the Gemini prompt templates for resume analysis and
// rewriting. Each embedded JSON file maps a prompt key to its template text;
// placeholders use the {{.Name}} form and are filled by Format.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// promptSet is one decoded template file, keyed by prompt name.
type promptSet map[string]string

var (
	setsMu sync.RWMutex
	sets   = map[string]promptSet{}
)

// Get returns the template stored under key in the embedded file
// (for example "analysis.json", "analyze-request").
func Get(filename, key string) (string, error) {
	set, err := load(filename)
	if err != nil {
		return "", err
	}
	text, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return text, nil
}

// MustGet is Get for templates the pipeline cannot run without.
func MustGet(filename, key string) string {
	text, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return text
}

// Format fills {{.Key}} placeholders from data in a single pass, so resume or
// job text that itself contains placeholder syntax is inserted verbatim.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// List returns the prompt keys of a file in sorted order.
func List(filename string) ([]string, error) {
	set, err := load(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// ClearCache drops decoded files so tests start cold.
func ClearCache() {
	setsMu.Lock()
	sets = map[string]promptSet{}
	setsMu.Unlock()
}

func load(filename string) (promptSet, error) {
	setsMu.RLock()
	set, ok := sets[filename]
	setsMu.RUnlock()
	if ok {
		return set, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	setsMu.Lock()
	sets[filename] = set
	setsMu.Unlock()
	return set, nil
}
