package highlight

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	// DefaultSpecialEvery marks every tenth line number.
	DefaultSpecialEvery = 10
	// DefaultStyle is the chroma style used for the stylesheet.
	DefaultStyle = "friendly"
	// ContainerClass wraps highlighted output; the stylesheet is scoped to it.
	ContainerClass = "syntax"
)

// Highlighter renders code as line-numbered HTML markup.
//
// OUTPUT SHAPE:
//
//	<div class="syntax"><pre>
//	<span class="line" id="line-1"><span class="ln">1</span><span class="k">def</span> ...</span>
//	...
//	</pre></div>
//
// Every line is addressable through its "line-N" anchor. Token spans carry
// chroma's short CSS class names, which CSS() styles.
type Highlighter struct {
	registry     *Registry
	style        *chroma.Style
	specialEvery int
}

// NewHighlighter builds a highlighter. An unknown style name falls back to
// chroma's default style; specialEvery <= 0 uses DefaultSpecialEvery.
func NewHighlighter(registry *Registry, styleName string, specialEvery int) *Highlighter {
	if specialEvery <= 0 {
		specialEvery = DefaultSpecialEvery
	}
	if styleName == "" {
		styleName = DefaultStyle
	}
	return &Highlighter{
		registry:     registry,
		style:        styles.Get(styleName),
		specialEvery: specialEvery,
	}
}

// Highlight renders code in the given language. It never fails: an unknown
// language is rendered as plain text, and so is code the tokenizer rejects.
func (h *Highlighter) Highlight(code, language string) string {
	code = stripCode(code)

	lines, err := h.tokenize(code, language)
	if err != nil {
		lines = plainLines(code)
	}

	var b strings.Builder
	b.WriteString(`<div class="` + ContainerClass + `"><pre>`)
	for i, tokens := range lines {
		n := i + 1
		class := "line"
		if n%h.specialEvery == 0 {
			class += " special"
		}
		fmt.Fprintf(&b, `<span class="%s" id="line-%d"><span class="ln">%d</span>`, class, n, n)
		for _, token := range tokens {
			writeToken(&b, token)
		}
		b.WriteString("</span>\n")
	}
	b.WriteString(`</pre></div>`)
	return b.String()
}

func (h *Highlighter) tokenize(code, language string) ([][]chroma.Token, error) {
	lexer := chroma.Coalesce(h.registry.GrammarFor(language))
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil, err
	}
	lines := chroma.SplitTokensIntoLines(iterator.Tokens())

	// Some grammars append a newline to their input; never render more lines
	// than the code has.
	if want := strings.Count(code, "\n") + 1; len(lines) > want {
		lines = lines[:want]
	}
	if len(lines) == 0 {
		lines = [][]chroma.Token{{}}
	}
	return lines, nil
}

func plainLines(code string) [][]chroma.Token {
	raw := strings.Split(code, "\n")
	lines := make([][]chroma.Token, len(raw))
	for i, line := range raw {
		lines[i] = []chroma.Token{{Type: chroma.Text, Value: line}}
	}
	return lines
}

func writeToken(b *strings.Builder, token chroma.Token) {
	value := strings.TrimSuffix(token.Value, "\n")
	if value == "" {
		return
	}
	escaped := html.EscapeString(value)
	class := tokenClass(token.Type)
	if class == "" {
		b.WriteString(escaped)
		return
	}
	b.WriteString(`<span class="` + class + `">` + escaped + `</span>`)
}

// tokenClass walks up the token type hierarchy until chroma has a class
// for it, e.g. NameFunctionMagic -> NameFunction ("nf").
func tokenClass(t chroma.TokenType) string {
	for t != chroma.Text && t > 0 {
		if class, ok := chroma.StandardTypes[t]; ok && class != "" {
			return class
		}
		parent := t.Parent()
		if parent == t {
			break
		}
		t = parent
	}
	return ""
}

// stripCode drops leading blank lines and trailing whitespace.
func stripCode(code string) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.TrimRightFunc(code, unicode.IsSpace)
	for {
		line, rest, found := strings.Cut(code, "\n")
		if !found || strings.TrimSpace(line) != "" {
			return code
		}
		code = rest
	}
}

// CSS returns the stylesheet for highlighted output, scoped to
// ".syntax".
func (h *Highlighter) CSS() (string, error) {
	var b strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&b, h.style); err != nil {
		return "", fmt.Errorf("highlight: writing stylesheet: %w", err)
	}
	css := strings.ReplaceAll(b.String(), ".chroma", "."+ContainerClass)
	css += "/* LineNumbers */ ." + ContainerClass + " .ln { margin-right: 0.8em; color: #7f7f7f; user-select: none }\n"
	css += "/* SpecialLine */ ." + ContainerClass + " .special .ln { font-weight: bold }\n"
	return css, nil
}

// Truncate keeps the first maxLines-1 lines of code followed by "..." when
// code is longer than maxLines. maxLines <= 0 leaves code unchanged.
func Truncate(code string, maxLines int) string {
	if maxLines <= 0 {
		return code
	}
	lines := strings.Split(code, "\n")
	if len(lines) <= maxLines {
		return code
	}
	kept := append(lines[:maxLines-1:maxLines-1], "...")
	return strings.Join(kept, "\n")
}

// ParseTruncate reads a "truncate" query value. Anything that is not a
// positive integer means "do not truncate".
func ParseTruncate(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
