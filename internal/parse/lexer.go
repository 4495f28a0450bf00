// Package parse is the lexer and recursive-descent parser that turns
// MITScript source text into an internal/ast tree, so the CLI's file and
// -s source modes have something to feed package compiler. Spec.md
// treats the real grammar as an external collaborator and explicitly
// leaves parsing out of scope — this package exists only because a
// runnable end-to-end CLI needs some parser in front of the compiler,
// not because the grammar itself is a first-class spec module.
//
// The shape — tokenize the whole input up front into a flat slice, then
// walk it with a cursor-based recursive-descent parser, panicking on a
// malformed token stream rather than threading error returns through
// every production — follows scm/parser.go's own tokenize-then-readFrom
// idiom, adapted from that file's s-expression grammar to MITScript's
// C-like statement/expression grammar.
package parse

import (
	"strconv"
	"strings"

	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/value"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokStr
	tokPunct
	tokKeyword
)

type token struct {
	kind tokenKind
	text string
	ival int32
	line int
}

var keywords = map[string]bool{
	"fun": true, "if": true, "else": true, "while": true, "return": true,
	"global": true, "true": true, "false": true, "None": true,
	"and": true, "or": true, "not": true,
}

// tokenize scans the entire source into a flat token slice. Escape
// expansion for string literals happens here, once, matching
// value.ExpandEscapes's doc comment that escape expansion is a one-time,
// parse-time step rather than something later stages repeat.
func tokenize(src string) []token {
	var toks []token
	line := 1
	i := 0
	n := len(src)

	peekPunct := func(s string) bool { return strings.HasPrefix(src[i:], s) }

	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#': // line comment, the teacher's own scm lexer convention for "to end of line"
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		case isDigit(c):
			start := i
			for i < n && isDigit(src[i]) {
				i++
			}
			v, err := strconv.ParseInt(src[start:i], 10, 32)
			if err != nil {
				langerr.Raise(langerr.RuntimeError, "parse: invalid integer literal %q at line %d", src[start:i], line)
			}
			toks = append(toks, token{kind: tokInt, text: src[start:i], ival: int32(v), line: line})
		case isIdentStart(c):
			start := i
			for i < n && isIdentCont(src[i]) {
				i++
			}
			word := src[start:i]
			if keywords[word] {
				toks = append(toks, token{kind: tokKeyword, text: word, line: line})
			} else {
				toks = append(toks, token{kind: tokIdent, text: word, line: line})
			}
		case c == '"':
			i++
			start := i
			for i < n && src[i] != '"' {
				if src[i] == '\\' && i+1 < n {
					i += 2
					continue
				}
				if src[i] == '\n' {
					line++
				}
				i++
			}
			if i >= n {
				langerr.Raise(langerr.RuntimeError, "parse: unterminated string literal starting at line %d", line)
			}
			raw := src[start:i]
			i++ // closing quote
			toks = append(toks, token{kind: tokStr, text: value.ExpandEscapes(raw), line: line})
		default:
			matched := false
			for _, p := range multiCharPuncts {
				if peekPunct(p) {
					toks = append(toks, token{kind: tokPunct, text: p, line: line})
					i += len(p)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if strings.ContainsRune(singleCharPuncts, rune(c)) {
				toks = append(toks, token{kind: tokPunct, text: string(c), line: line})
				i++
				continue
			}
			langerr.Raise(langerr.RuntimeError, "parse: unexpected character %q at line %d", c, line)
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks
}

var multiCharPuncts = []string{"==", ">=", "<=", "!="}

const singleCharPuncts = "+-*/(){}[];,.=<>:"

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentCont(c byte) bool  { return isIdentStart(c) || isDigit(c) }
