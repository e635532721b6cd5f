package strategy

import (
	"strconv"
	"strings"

	"github.com/rxtech-lab/streamquant/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokMinus
	tokLt
	tokLe
	tokGt
	tokGe
	tokEq
)

type token struct {
	kind tokenKind
	text string
	num  float64
	line int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of script"
	case tokNewline:
		return "end of line"
	case tokNumber:
		return strconv.FormatFloat(t.num, 'g', -1, 64)
	default:
		return t.text
	}
}

// lex tokenizes a rule script. Newlines are significant (one rule per line);
// '#' starts a comment running to end of line.
func lex(source string) ([]token, error) {
	var tokens []token
	line := 1
	i := 0

	emit := func(kind tokenKind, text string) {
		tokens = append(tokens, token{kind: kind, text: text, line: line})
	}

	for i < len(source) {
		ch := source[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			i++
		case ch == '#':
			for i < len(source) && source[i] != '\n' {
				i++
			}
		case ch == '\n':
			emit(tokNewline, "\n")
			line++
			i++
		case ch == '(':
			emit(tokLParen, "(")
			i++
		case ch == ')':
			emit(tokRParen, ")")
			i++
		case ch == ',':
			emit(tokComma, ",")
			i++
		case ch == '-':
			emit(tokMinus, "-")
			i++
		case ch == '<':
			if i+1 < len(source) && source[i+1] == '=' {
				emit(tokLe, "<=")
				i += 2
			} else {
				emit(tokLt, "<")
				i++
			}
		case ch == '>':
			if i+1 < len(source) && source[i+1] == '=' {
				emit(tokGe, ">=")
				i += 2
			} else {
				emit(tokGt, ">")
				i++
			}
		case ch == '=':
			if i+1 < len(source) && source[i+1] == '=' {
				emit(tokEq, "==")
				i += 2
			} else {
				return nil, errors.Newf(errors.ErrCodeStrategyParse, "line %d: single '=' is not an operator, use '=='", line)
			}
		case ch >= '0' && ch <= '9' || ch == '.':
			start := i
			for i < len(source) && (source[i] >= '0' && source[i] <= '9' || source[i] == '.') {
				i++
			}
			text := source[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errors.Newf(errors.ErrCodeStrategyParse, "line %d: bad number %q", line, text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: num, line: line})
		case isIdentStart(ch):
			start := i
			for i < len(source) && isIdentPart(source[i]) {
				i++
			}
			emit(tokIdent, source[start:i])
		default:
			return nil, errors.Newf(errors.ErrCodeStrategyParse, "line %d: unexpected character %q", line, string(ch))
		}
	}

	tokens = append(tokens, token{kind: tokEOF, line: line})

	return tokens, nil
}

func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || ch >= '0' && ch <= '9'
}

// keyword returns the uppercase form of an identifier token for keyword
// matching; scripts are case-insensitive.
func keyword(t token) string {
	return strings.ToUpper(t.text)
}
