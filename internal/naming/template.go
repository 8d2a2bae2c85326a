// Package naming expands output filename templates such as
// "[name].[hash:20].js" into concrete, content addressed names.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hashToken = regexp.MustCompile(`^(?:([a-z0-9]+):)?(?:hash|contenthash|chunkhash)(?::([a-z]+[0-9]*))?(?::([0-9]+))?$`)

type tokenKind int

const (
	literal tokenKind = iota
	nameToken
	extToken
	hashTok
)

type part struct {
	kind   tokenKind
	text   string
	algo   string
	digest string
	length int
}

// Template is a parsed filename pattern.
type Template struct {
	pattern string
	parts   []part
}

// Parse parses a filename pattern. Unknown bracketed tokens are kept verbatim.
func Parse(pattern string) (Template, error) {
	t := Template{pattern: pattern}

	rest := pattern
	for rest != "" {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			t.appendLiteral(rest)
			break
		}
		closing := strings.IndexByte(rest[open:], ']')
		if closing < 0 {
			t.appendLiteral(rest)
			break
		}
		closing += open

		t.appendLiteral(rest[:open])
		p, err := parseToken(rest[open+1 : closing])
		if err != nil {
			return Template{}, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if p.kind == literal {
			p.text = rest[open : closing+1]
		}
		t.parts = append(t.parts, p)
		rest = rest[closing+1:]
	}

	return t, nil
}

func parseToken(tok string) (part, error) {
	switch tok {
	case "name":
		return part{kind: nameToken}, nil
	case "ext":
		return part{kind: extToken}, nil
	}

	m := hashToken.FindStringSubmatch(tok)
	if m == nil {
		return part{kind: literal}, nil
	}

	p := part{kind: hashTok, algo: m[1], digest: m[2]}
	if p.algo == "" {
		p.algo = DefaultAlgorithm
	}
	if p.digest == "" {
		p.digest = DefaultDigest
	}
	if _, ok := algorithms[p.algo]; !ok {
		return part{}, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, p.algo)
	}
	if _, ok := digests[p.digest]; !ok {
		return part{}, fmt.Errorf("%w: %s", ErrUnknownDigest, p.digest)
	}
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil || n <= 0 {
			return part{}, fmt.Errorf("%w: %s", ErrInvalidLength, m[3])
		}
		p.length = n
	}
	return p, nil
}

func (t *Template) appendLiteral(s string) {
	if s == "" {
		return
	}
	t.parts = append(t.parts, part{kind: literal, text: s})
}

// String returns the original pattern.
func (t Template) String() string {
	return t.pattern
}

// HasHash reports whether the pattern embeds a content hash.
func (t Template) HasHash() bool {
	for _, p := range t.parts {
		if p.kind == hashTok {
			return true
		}
	}
	return false
}

// Execute expands the template. ext is given without the leading dot.
func (t Template) Execute(name, ext string, content []byte) string {
	var b strings.Builder
	cache := map[string]string{}

	for _, p := range t.parts {
		switch p.kind {
		case literal:
			b.WriteString(p.text)
		case nameToken:
			b.WriteString(name)
		case extToken:
			b.WriteString(ext)
		case hashTok:
			key := p.algo + ":" + p.digest
			sum, ok := cache[key]
			if !ok {
				// algorithm and digest were validated by Parse
				sum, _ = Hash(p.algo, p.digest, content)
				cache[key] = sum
			}
			if p.length > 0 && p.length < len(sum) {
				sum = sum[:p.length]
			}
			b.WriteString(sum)
		}
	}

	return b.String()
}

// Interpolate parses pattern and expands it in one step.
func Interpolate(pattern, name, ext string, content []byte) (string, error) {
	t, err := Parse(pattern)
	if err != nil {
		return "", err
	}
	return t.Execute(name, ext, content), nil
}

// WithExt swaps a trailing ".js" in pattern for ext so sibling outputs such
// as stylesheets share the bundle naming scheme.
func WithExt(pattern, ext string) string {
	if strings.HasSuffix(pattern, ".js") {
		return strings.TrimSuffix(pattern, ".js") + "." + ext
	}
	if strings.HasSuffix(pattern, ".[ext]") {
		return pattern
	}
	return pattern + "." + ext
}
