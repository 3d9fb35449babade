package sparql

import (
	"strings"

	"github.com/tinygraph/tinygraph/internal/errs"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRIRef
	tokPNameLN  // prefix:suffix
	tokPNameNS  // prefix: (bare, used after PREFIX keyword)
	tokVar      // ?name or $name
	tokPlaceholder // ~name
	tokString
	tokLangTag
	tokDatatypeCaret // "^^"
	tokKeyword
	tokA // the "a" rdf:type shorthand
	tokLBrace
	tokRBrace
	tokDot
	tokComma
	tokSemicolon
	tokStar
)

type token struct {
	kind   tokenKind
	text   string
	line   int
	column int
}

// lexer is a minimal hand-rolled scanner over the query text, modeled on
// the teacher's position-tracking tokenizer style (internal/rdfio) but
// without the sliding-window buffer: SPARQL query/update text is small
// and held in memory whole, unlike a streamed document ingest.
type lexer struct {
	src        []rune
	pos        int
	line, col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1, col: 1}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) advance() (rune, bool) {
	r, ok := l.peekRune()
	if !ok {
		return 0, false
	}
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r, true
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func (l *lexer) skipInsignificant() {
	for {
		r, ok := l.peekRune()
		if !ok {
			return
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			l.advance()
			continue
		}
		if r == '#' {
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}
				l.advance()
			}
			continue
		}
		return
	}
}

// next returns the next token. Position fields refer to the token's
// first rune.
func (l *lexer) next() (token, error) {
	l.skipInsignificant()
	startLine, startCol := l.line, l.col
	r, ok := l.peekRune()
	if !ok {
		return token{kind: tokEOF, line: startLine, column: startCol}, nil
	}

	switch {
	case r == '<':
		return l.lexIRIRef(startLine, startCol)
	case r == '?' || r == '$':
		return l.lexVar(startLine, startCol)
	case r == '~':
		return l.lexPlaceholder(startLine, startCol)
	case r == '"' || r == '\'':
		return l.lexString(startLine, startCol, r)
	case r == '{':
		l.advance()
		return token{kind: tokLBrace, text: "{", line: startLine, column: startCol}, nil
	case r == '}':
		l.advance()
		return token{kind: tokRBrace, text: "}", line: startLine, column: startCol}, nil
	case r == '.':
		l.advance()
		return token{kind: tokDot, text: ".", line: startLine, column: startCol}, nil
	case r == ',':
		l.advance()
		return token{kind: tokComma, text: ",", line: startLine, column: startCol}, nil
	case r == ';':
		l.advance()
		return token{kind: tokSemicolon, text: ";", line: startLine, column: startCol}, nil
	case r == '*':
		l.advance()
		return token{kind: tokStar, text: "*", line: startLine, column: startCol}, nil
	case r == '^':
		l.advance()
		if r2, ok := l.peekRune(); ok && r2 == '^' {
			l.advance()
			return token{kind: tokDatatypeCaret, text: "^^", line: startLine, column: startCol}, nil
		}
		return token{}, errs.NewParseError(startLine, startCol, "Parse", "unexpected '^'")
	case r == '@':
		return l.lexLangTag(startLine, startCol)
	case isNameChar(r) || r == ':':
		return l.lexNameOrKeyword(startLine, startCol)
	default:
		return token{}, errs.NewParseError(startLine, startCol, "Parse", "unexpected character")
	}
}

func (l *lexer) lexIRIRef(line, col int) (token, error) {
	l.advance() // consume '<'
	var b strings.Builder
	for {
		r, ok := l.advance()
		if !ok {
			return token{}, errs.NewParseError(line, col, "UnterminatedString", "unterminated IRI reference")
		}
		if r == '>' {
			return token{kind: tokIRIRef, text: b.String(), line: line, column: col}, nil
		}
		b.WriteRune(r)
	}
}

func (l *lexer) lexVar(line, col int) (token, error) {
	l.advance() // consume '?' or '$'
	var b strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !isNameChar(r) {
			break
		}
		b.WriteRune(r)
		l.advance()
	}
	if b.Len() == 0 {
		return token{}, errs.NewParseError(line, col, "Parse", "empty variable name")
	}
	return token{kind: tokVar, text: b.String(), line: line, column: col}, nil
}

func (l *lexer) lexPlaceholder(line, col int) (token, error) {
	l.advance() // consume '~'
	var b strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !isNameChar(r) {
			break
		}
		b.WriteRune(r)
		l.advance()
	}
	if b.Len() == 0 {
		return token{}, errs.NewParseError(line, col, "Parse", "empty placeholder name")
	}
	return token{kind: tokPlaceholder, text: b.String(), line: line, column: col}, nil
}

func (l *lexer) lexString(line, col int, quote rune) (token, error) {
	l.advance() // consume opening quote
	var b strings.Builder
	for {
		r, ok := l.advance()
		if !ok {
			return token{}, errs.NewParseError(line, col, "UnterminatedString", "unterminated string literal")
		}
		if r == '\\' {
			esc, ok := l.advance()
			if !ok {
				return token{}, errs.NewParseError(line, col, "UnterminatedString", "unterminated escape")
			}
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteRune(esc)
			}
			continue
		}
		if r == quote {
			return token{kind: tokString, text: b.String(), line: line, column: col}, nil
		}
		b.WriteRune(r)
	}
}

func (l *lexer) lexLangTag(line, col int) (token, error) {
	l.advance() // consume '@'
	var b strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !(isNameChar(r) && r != '.' && r != '_') {
			break
		}
		b.WriteRune(r)
		l.advance()
	}
	if b.Len() == 0 {
		return token{}, errs.NewParseError(line, col, "Parse", "empty language tag")
	}
	return token{kind: tokLangTag, text: b.String(), line: line, column: col}, nil
}

var keywords = map[string]bool{
	"SELECT": true, "ASK": true, "CONSTRUCT": true, "DESCRIBE": true,
	"WHERE": true, "DISTINCT": true, "PREFIX": true, "GRAPH": true,
	"INSERT": true, "DELETE": true, "DATA": true, "FROM": true,
}

func (l *lexer) lexNameOrKeyword(line, col int) (token, error) {
	var b strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !(isNameChar(r) || r == ':') {
			break
		}
		b.WriteRune(r)
		l.advance()
		if r == ':' {
			break // a CURIE's colon ends the prefix part; suffix is scanned next
		}
	}
	text := b.String()

	if strings.HasSuffix(text, ":") {
		// Possibly a bare "prefix:" (PNameNS) or "prefix:suffix" (PNameLN);
		// keep consuming suffix name characters if any follow directly.
		var suffix strings.Builder
		for {
			r, ok := l.peekRune()
			if !ok || !isNameChar(r) {
				break
			}
			suffix.WriteRune(r)
			l.advance()
		}
		if suffix.Len() == 0 {
			return token{kind: tokPNameNS, text: text, line: line, column: col}, nil
		}
		return token{kind: tokPNameLN, text: text + suffix.String(), line: line, column: col}, nil
	}

	upper := strings.ToUpper(text)
	if text == "a" {
		return token{kind: tokA, text: text, line: line, column: col}, nil
	}
	if keywords[upper] {
		return token{kind: tokKeyword, text: upper, line: line, column: col}, nil
	}
	return token{}, errs.NewParseError(line, col, "Parse", "unexpected token: "+text)
}
