// Package highlight turns paste code into markup and compares pastes.
//
// It is a thin layer over three libraries:
//   - github.com/alecthomas/chroma/v2 tokenizes code (the "grammars")
//   - github.com/sergi/go-diff computes line diffs
//   - github.com/pmezard/go-difflib writes unified diffs
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// PlainText is the language identifier that always exists.
const PlainText = "text"

// Registry answers "is this a language we can highlight?" and maps a
// language identifier to its grammar.
//
// Identifiers are the lowercase names and aliases chroma knows, e.g. "python",
// "py", "go", "c++". Lookups ignore case.
type Registry struct {
	source *chroma.LexerRegistry
	lexers map[string]chroma.Lexer
	names  map[string]string
}

// NewRegistry indexes every lexer chroma ships with.
func NewRegistry() *Registry {
	return newRegistry(lexers.GlobalLexerRegistry)
}

func newRegistry(source *chroma.LexerRegistry) *Registry {
	r := &Registry{
		source: source,
		lexers: make(map[string]chroma.Lexer),
		names:  make(map[string]string),
	}
	for _, lexer := range source.Lexers {
		cfg := lexer.Config()
		if cfg == nil {
			continue
		}
		r.add(cfg.Name, cfg.Name, lexer)
		for _, alias := range cfg.Aliases {
			r.add(alias, cfg.Name, lexer)
		}
	}
	// "text" must always resolve, whatever the registry contains.
	if _, ok := r.lexers[PlainText]; !ok {
		r.add(PlainText, "Plain text", lexers.Fallback)
	}
	return r
}

func (r *Registry) add(id, name string, lexer chroma.Lexer) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return
	}
	// First registration wins, so an alias never steals a lexer's own name.
	if _, exists := r.lexers[id]; exists {
		return
	}
	r.lexers[id] = lexer
	r.names[id] = name
}

// IsKnown reports whether language names a grammar.
func (r *Registry) IsKnown(language string) bool {
	_, ok := r.lexers[strings.ToLower(language)]
	return ok
}

// GrammarFor returns the grammar for language, or the plaintext grammar.
func (r *Registry) GrammarFor(language string) chroma.Lexer {
	if lexer, ok := r.lexers[strings.ToLower(language)]; ok {
		return lexer
	}
	return lexers.Fallback
}

// Languages maps every accepted identifier to its display name.
func (r *Registry) Languages() map[string]string {
	out := make(map[string]string, len(r.names))
	for id, name := range r.names {
		out[id] = name
	}
	return out
}

// Detect picks a language for code submitted without one.
//
// The MIME type is tried first, then the file name, then the content
// itself. The first alias of the matched lexer that this registry accepts is
// returned; anything unresolved is PlainText.
func (r *Registry) Detect(filename, mimetype, code string) string {
	var lexer chroma.Lexer
	if mimetype = strings.TrimSpace(mimetype); mimetype != "" {
		lexer = r.source.MatchMimeType(mimetype)
	}
	if filename = strings.TrimSpace(filename); lexer == nil && filename != "" {
		lexer = r.source.Match(filename)
	}
	if lexer == nil && strings.TrimSpace(code) != "" {
		lexer = r.source.Analyse(code)
	}
	if lexer == nil || lexer.Config() == nil {
		return PlainText
	}

	cfg := lexer.Config()
	for _, alias := range cfg.Aliases {
		if r.IsKnown(alias) {
			return strings.ToLower(alias)
		}
	}
	return PlainText
}
