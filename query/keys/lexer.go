package keys

import "strings"

type shape int

const (
	shapeNone shape = iota
	shapeField       // segment started by '.', object traversal
	shapeIndex       // segment started by '[', array traversal
)

type token struct {
	text  string
	shape shape
}

// lex splits a field reference into tokens. Double-quoted spans are taken
// literally and never start a new segment. '.' starts a field segment, '['
// an index segment, ']' closes one. Whitespace separates plain tokens. "::"
// marks an explicit cast; only the first cast in a key is honored, the type
// name of a later one falls through to the remainder.
func lex(key string) ([]token, string, error) {
	var (
		toks     []token
		buf      strings.Builder
		quoted   bool // current token contains a quoted span
		inQuote  bool
		next     shape
		castNext bool
		cast     string
	)

	flush := func(following shape) {
		if buf.Len() > 0 || quoted {
			if castNext {
				cast = buf.String()
				castNext = false
			} else {
				toks = append(toks, token{text: buf.String(), shape: next})
			}
		}
		buf.Reset()
		quoted = false
		next = following
	}

	runes := []rune(key)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if ch == '"' {
			inQuote = !inQuote
			quoted = true
			continue
		}
		if inQuote {
			buf.WriteRune(ch)
			continue
		}

		switch {
		case ch == '.':
			flush(shapeField)
		case ch == '[':
			flush(shapeIndex)
		case ch == ']':
			flush(shapeNone)
		case ch == ':' && i+1 < len(runes) && runes[i+1] == ':':
			flush(shapeNone)
			if cast == "" && !castNext {
				castNext = true
			}
			i++
		case ch == ' ' || ch == '\t':
			flush(shapeNone)
		default:
			buf.WriteRune(ch)
		}
	}
	if inQuote {
		return nil, "", &KeyError{Key: key, Message: "unterminated quoted identifier"}
	}
	flush(shapeNone)

	if castNext {
		return nil, "", &KeyError{Key: key, Message: "cast marker with no type"}
	}
	return toks, cast, nil
}
