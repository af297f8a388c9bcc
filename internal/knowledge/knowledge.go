// Package knowledge holds the static intent table the assistant answers from.
package knowledge

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyIntent is returned for an entry without an intent identifier.
	ErrEmptyIntent = errors.New("intent is required")
	// ErrDuplicateIntent is returned when two entries share an intent identifier.
	ErrDuplicateIntent = errors.New("duplicate intent")
	// ErrEmptyKeywords is returned for an entry that could never be matched.
	ErrEmptyKeywords = errors.New("keyword set is empty")
	// ErrBlankKeyword is returned for a keyword that would match every input.
	ErrBlankKeyword = errors.New("keyword is blank")
	// ErrEmptyResponse is returned for an entry without response text.
	ErrEmptyResponse = errors.New("response is empty")
	// ErrUnknownRelated is returned when a related intent is not declared in the table.
	ErrUnknownRelated = errors.New("related intent not declared")
)

// ValidationError describes why an entry was rejected at construction time.
type ValidationError struct {
	Intent  string
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Intent != "" {
		return fmt.Sprintf("intent %q: %s: %s", e.Intent, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Entry is one intent: the keywords that signal it and the canned reply.
type Entry struct {
	Intent   string   `json:"intent" yaml:"intent"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Response string   `json:"response" yaml:"response"`
	Related  []string `json:"related,omitempty" yaml:"related,omitempty"`
}

func (e Entry) clone() Entry {
	e.Keywords = append([]string(nil), e.Keywords...)
	e.Related = append([]string(nil), e.Related...)
	return e
}

// Base is an immutable, ordered set of entries. Iteration order is declaration order.
type Base struct {
	entries []Entry
	index   map[string]int
}

// New validates entries and freezes them into a Base.
// Keywords are lowercased; any other defect is rejected rather than repaired.
func New(entries ...Entry) (*Base, error) {
	b := &Base{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for _, e := range entries {
		if strings.TrimSpace(e.Intent) == "" {
			return nil, &ValidationError{Field: "intent", Message: "must not be empty", Err: ErrEmptyIntent}
		}
		if _, exists := b.index[e.Intent]; exists {
			return nil, &ValidationError{Intent: e.Intent, Field: "intent", Message: "declared more than once", Err: ErrDuplicateIntent}
		}
		if len(e.Keywords) == 0 {
			return nil, &ValidationError{Intent: e.Intent, Field: "keywords", Message: "entry would never match", Err: ErrEmptyKeywords}
		}
		if strings.TrimSpace(e.Response) == "" {
			return nil, &ValidationError{Intent: e.Intent, Field: "response", Message: "must not be empty", Err: ErrEmptyResponse}
		}

		frozen := e.clone()
		for i, kw := range frozen.Keywords {
			if strings.TrimSpace(kw) == "" {
				return nil, &ValidationError{Intent: e.Intent, Field: "keywords", Message: fmt.Sprintf("keyword %d is blank", i), Err: ErrBlankKeyword}
			}
			frozen.Keywords[i] = strings.ToLower(kw)
		}

		b.index[frozen.Intent] = len(b.entries)
		b.entries = append(b.entries, frozen)
	}

	// Related intents may point forward, so check them once everything is indexed.
	for _, e := range b.entries {
		for _, rel := range e.Related {
			if _, ok := b.index[rel]; !ok {
				return nil, &ValidationError{Intent: e.Intent, Field: "related", Message: fmt.Sprintf("%q is not declared", rel), Err: ErrUnknownRelated}
			}
		}
	}

	return b, nil
}

// MustNew is like New but panics on invalid input. Intended for compiled-in tables.
func MustNew(entries ...Entry) *Base {
	b, err := New(entries...)
	if err != nil {
		panic("knowledge: " + err.Error())
	}
	return b
}

// Entries returns a copy of all entries in declaration order.
func (b *Base) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.clone()
	}
	return out
}

// Lookup returns the entry for an intent.
func (b *Base) Lookup(intent string) (Entry, bool) {
	i, ok := b.index[intent]
	if !ok {
		return Entry{}, false
	}
	return b.entries[i].clone(), true
}

// Intents returns the intent identifiers in declaration order.
func (b *Base) Intents() []string {
	out := make([]string, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.Intent
	}
	return out
}

// Len returns the number of entries.
func (b *Base) Len() int {
	return len(b.entries)
}

// document is the on-disk YAML layout accepted by Load.
type document struct {
	Intents []Entry `yaml:"intents"`
}

// Load reads a YAML knowledge file and validates it like New.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge file %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing knowledge file %s: %w", path, err)
	}
	if len(doc.Intents) == 0 {
		return nil, fmt.Errorf("knowledge file %s declares no intents", path)
	}

	b, err := New(doc.Intents...)
	if err != nil {
		return nil, fmt.Errorf("knowledge file %s: %w", path, err)
	}
	return b, nil
}

// Marshal renders the table in the format Load accepts.
func (b *Base) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(document{Intents: b.Entries()})
	if err != nil {
		return nil, fmt.Errorf("marshalling knowledge base: %w", err)
	}
	return data, nil
}
