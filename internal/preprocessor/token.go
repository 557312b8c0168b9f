package preprocessor

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenKind tags the variant held by a Token.
type TokenKind int

const (
	TokenOtherCode TokenKind = iota
	TokenCommand
	TokenName
	TokenString
	TokenSeparator
)

func (k TokenKind) String() string {
	switch k {
	case TokenOtherCode:
		return "other code"
	case TokenCommand:
		return "command"
	case TokenName:
		return "name literal"
	case TokenString:
		return "string literal"
	case TokenSeparator:
		return "separator"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Command is a directive keyword.
type Command int

const (
	CmdInclude Command = iota + 1
	CmdDefine
	CmdUnDefine
	CmdIfDef
	CmdIfNotDef
	CmdEndif
	CmdError
	CmdWarn
)

var commands = map[string]Command{
	"include": CmdInclude,
	"define":  CmdDefine,
	"undef":   CmdUnDefine,
	"ifdef":   CmdIfDef,
	"ifndef":  CmdIfNotDef,
	"endif":   CmdEndif,
	"error":   CmdError,
	"warn":    CmdWarn,
}

func (c Command) String() string {
	for word, cmd := range commands {
		if cmd == c {
			return word
		}
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// gating reports whether c manages the conditional stack itself and
// therefore runs regardless of the current gate.
func (c Command) gating() bool {
	return c == CmdIfDef || c == CmdIfNotDef || c == CmdEndif
}

// Separator is punctuation recognised after the start operator.
type Separator int

// SepColon is part of the directive vocabulary but no directive consumes it.
const SepColon Separator = iota + 1

// Token is one lexical unit of a line. Text holds the literal value for
// TokenName and TokenString, and the opaque text for TokenOtherCode.
type Token struct {
	Kind      TokenKind
	Command   Command
	Separator Separator
	Text      string
}

func (t Token) String() string {
	switch t.Kind {
	case TokenCommand:
		return "command " + t.Command.String()
	case TokenName, TokenString, TokenOtherCode:
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	case TokenSeparator:
		return "separator ':'"
	}
	return t.Kind.String()
}

// tokenizeLine splits line on single spaces. Everything before the first
// word equal to op is opaque code; the rest is directive vocabulary.
func tokenizeLine(op, line string) []Token {
	var (
		toks      []Token
		lit       strings.Builder
		inLit     bool
		otherCode = true
		trimmed   = strings.TrimSpace(line)
		lead      = len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
		pos       int
	)
	for _, word := range strings.Split(trimmed, " ") {
		start := pos
		pos += len(word) + 1

		if otherCode {
			if word == op {
				otherCode = false
				prefix := strings.TrimRightFunc(line[:lead+start], unicode.IsSpace)
				toks = append(toks, Token{Kind: TokenOtherCode, Text: prefix})
			}
			continue
		}

		wasOpen := inLit
		switch {
		case inLit:
			lit.WriteString(word)
		case strings.HasPrefix(word, `"`):
			inLit = true
			lit.Reset()
			lit.WriteString(word)
		}
		if inLit {
			// a lone `"` opens a literal that starts with a space
			if strings.HasSuffix(word, `"`) && (wasOpen || len(word) > 1) {
				inLit = false
				toks = append(toks, Token{Kind: TokenString, Text: strings.ReplaceAll(lit.String(), `"`, "")})
			} else {
				lit.WriteByte(' ')
			}
			continue
		}

		if word == "" {
			continue
		}
		if cmd, ok := commands[word]; ok {
			toks = append(toks, Token{Kind: TokenCommand, Command: cmd})
			continue
		}
		toks = append(toks, Token{Kind: TokenName, Text: word})
	}
	if otherCode {
		toks = append(toks, Token{Kind: TokenOtherCode, Text: line})
	}
	return toks
}

// ---------------- Cursor ----------------

type cursor struct {
	toks []Token
	i    int
}

func (c *cursor) more() bool { return c.i < len(c.toks) }

func (c *cursor) next() (Token, bool) {
	if c.i >= len(c.toks) {
		return Token{}, false
	}
	t := c.toks[c.i]
	c.i++
	return t, true
}

// expect consumes the next token and checks its kind.
func (c *cursor) expect(kind TokenKind) (Token, error) {
	t, ok := c.next()
	if !ok {
		return Token{}, fmt.Errorf("%w: expected %s, found end of line", ErrUnexpectedToken, kind)
	}
	if t.Kind != kind {
		return Token{}, fmt.Errorf("%w: expected %s, found %s", ErrUnexpectedToken, kind, t)
	}
	return t, nil
}
