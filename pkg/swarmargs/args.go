// Package swarmargs implements the mutable argument vector the
// compile-command rewriter operates on: a sequence of shell tokens
// with regex-based query, delete-with-followers, substitute-all and
// append operations.
package swarmargs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xavarteaga/swarm/pkg/swarmerrors"
)

// Vector is an ordered sequence of string tokens, excluding the
// program name. Indexing is stable only across queries; any mutation
// (Delete/Substitute/Append) may shift indices.
type Vector struct {
	tokens []string
}

// New builds a Vector from a full argv, dropping argv[0] (the program
// name). Quote balance is normalized per token so that Join() round-
// trips through a shell without quote stripping.
func New(argv []string) (*Vector, error) {
	if len(argv) < 2 {
		return nil, swarmerrors.ConfigError{Message: fmt.Sprintf("expected at least 2 argv entries, got %d", len(argv))}
	}
	tokens := make([]string, len(argv)-1)
	for i, raw := range argv[1:] {
		tokens[i] = transposeQuotes(raw)
	}
	return &Vector{tokens: tokens}, nil
}

// Clone returns an independent copy so the caller can diverge one
// vector into a preprocess vs. compile variant.
func (v *Vector) Clone() *Vector {
	return &Vector{tokens: append([]string(nil), v.tokens...)}
}

// Tokens returns a defensive copy of the underlying token slice.
func (v *Vector) Tokens() []string {
	return append([]string(nil), v.tokens...)
}

// Join concatenates tokens with single spaces and a trailing space;
// the result is passed directly to a shell by callers.
func (v *Vector) Join() string {
	var b strings.Builder
	for _, t := range v.tokens {
		b.WriteString(t)
		b.WriteByte(' ')
	}
	return b.String()
}

// DeleteMatching removes, for every token whose content matches
// pattern (regex search, unanchored), that token and the following
// count-1 tokens. Scanning is left-to-right and resumes at the same
// position after a deletion, so matches inside an already-deleted
// window never re-match.
func (v *Vector) DeleteMatching(pattern string, count int) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return swarmerrors.Wrap(err, "compiling delete pattern", pattern)
	}
	i := 0
	for i < len(v.tokens) {
		if !re.MatchString(v.tokens[i]) {
			i++
			continue
		}
		end := i + count
		if end > len(v.tokens) {
			end = len(v.tokens)
		}
		v.tokens = append(v.tokens[:i], v.tokens[end:]...)
	}
	return nil
}

// FirstMatching returns the token at i+offset, where i is the index of
// the first token matching pattern. An absent match returns "" with no
// error; an out-of-range offset is an error.
func (v *Vector) FirstMatching(pattern string, offset int) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", swarmerrors.Wrap(err, "compiling match pattern", pattern)
	}
	for i, t := range v.tokens {
		if !re.MatchString(t) {
			continue
		}
		idx := i + offset
		if idx < 0 || idx >= len(v.tokens) {
			return "", swarmerrors.ConfigError{Message: fmt.Sprintf("first-matching offset out of range: index %d", idx)}
		}
		return v.tokens[idx], nil
	}
	return "", nil
}

// SubstituteAllMatching sets token i+offset to replacement for every
// index i matching pattern. Out-of-range is fatal (returned as error).
func (v *Vector) SubstituteAllMatching(pattern, replacement string, offset int) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return swarmerrors.Wrap(err, "compiling substitute pattern", pattern)
	}
	for i := 0; i < len(v.tokens); i++ {
		if !re.MatchString(v.tokens[i]) {
			continue
		}
		idx := i + offset
		if idx < 0 || idx >= len(v.tokens) {
			return swarmerrors.ConfigError{Message: fmt.Sprintf("substitute offset out of range: index %d", idx)}
		}
		v.tokens[idx] = replacement
	}
	return nil
}

// Last returns the final token.
func (v *Vector) Last() string {
	return v.tokens[len(v.tokens)-1]
}

// Append pushes tok at the end.
func (v *Vector) Append(tok string) {
	v.tokens = append(v.tokens, tok)
}

// Len reports the current token count.
func (v *Vector) Len() int {
	return len(v.tokens)
}

// transposeQuotes rewrites a token's outermost single- and/or
// double-quoted span so a downstream shell re-tokenizes the whole
// token as one word while preserving the original quote characters as
// literal payload. Both spans are located against the token's
// original content so a token carrying only one kind of quoting is
// never double-processed.
type quoteEdit struct {
	pos int
	new string
}

func transposeQuotes(tok string) string {
	var edits []quoteEdit

	if open, close := firstLast(tok, '\''); open >= 0 && open != close {
		edits = append(edits, quoteEdit{open, `"'`}, quoteEdit{close, `'"`})
	}
	if open, close := firstLast(tok, '"'); open >= 0 && open != close {
		edits = append(edits, quoteEdit{open, `'"`}, quoteEdit{close, `"'`})
	}
	if len(edits) == 0 {
		return tok
	}

	sortEdits(edits)

	var b strings.Builder
	last := 0
	for _, e := range edits {
		b.WriteString(tok[last:e.pos])
		b.WriteString(e.new)
		last = e.pos + 1
	}
	b.WriteString(tok[last:])
	return b.String()
}

func firstLast(s string, quote byte) (int, int) {
	first := strings.IndexByte(s, quote)
	if first < 0 {
		return -1, -1
	}
	last := strings.LastIndexByte(s, quote)
	return first, last
}

func sortEdits(edits []quoteEdit) {
	for i := 1; i < len(edits); i++ {
		for j := i; j > 0 && edits[j-1].pos > edits[j].pos; j-- {
			edits[j-1], edits[j] = edits[j], edits[j-1]
		}
	}
}
