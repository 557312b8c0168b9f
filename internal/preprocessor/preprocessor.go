package preprocessor

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// DefaultStartOperator switches a line from opaque code to directives.
const DefaultStartOperator = "//!"

// ---------------- Preprocessor ----------------

// Namespace is a named collection of source files.
type Namespace interface {
	Source(name string) (string, bool)
}

type Options struct {
	StartOperator string
	Defines       map[string]string

	// Logger receives warn and error directives. Defaults to slog.Default().
	Logger *slog.Logger

	// OnError is offered every failure where it happens. Returning nil drops
	// the rest of the failing line and keeps going; returning an error aborts
	// the run with it. A nil OnError aborts on the first failure.
	OnError func(err error) error
}

// Preprocessor holds the state of one run. The define table and the
// conditional stack are shared by every file reached through includes.
// A Preprocessor is not safe for concurrent use.
type Preprocessor struct {
	startOperator string
	sources       map[string]Namespace
	defines       map[string]string
	order         []string
	cond          *condStack
	log           *slog.Logger
	onError       func(error) error
	depth         int
}

type location struct {
	namespace string
	file      string
	line      int
}

func New(opts Options) *Preprocessor {
	p := &Preprocessor{
		startOperator: opts.StartOperator,
		sources:       map[string]Namespace{},
		defines:       make(map[string]string, len(opts.Defines)),
		cond:          newCondStack(),
		log:           opts.Logger,
		onError:       opts.OnError,
	}
	if p.startOperator == "" {
		p.startOperator = DefaultStartOperator
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	for name, value := range opts.Defines {
		p.define(name, value)
	}
	return p
}

// AddSource registers ns under name, replacing any previous registration.
func (p *Preprocessor) AddSource(name string, ns Namespace) {
	p.sources[name] = ns
}

// Defines returns a copy of the current define table.
func (p *Preprocessor) Defines() map[string]string {
	out := make(map[string]string, len(p.defines))
	for k, v := range p.defines {
		out[k] = v
	}
	return out
}

// Depth returns the number of open ifdef/ifndef blocks.
func (p *Preprocessor) Depth() int { return p.cond.Depth() }

// TokenizeLine splits one line into tokens using the configured start operator.
func (p *Preprocessor) TokenizeLine(line string) []Token {
	return tokenizeLine(p.startOperator, line)
}

// Preprocess resolves file in namespace and returns the flattened text.
// On failure no partial output is returned.
func (p *Preprocessor) Preprocess(namespace, file string) (string, error) {
	text, err := p.lookup(namespace, file)
	if err != nil {
		return "", &Error{Namespace: namespace, File: file, Err: err}
	}
	out, err := p.resolve(namespace, file, text)
	if err != nil {
		return "", err
	}
	if p.depth == 0 && p.cond.Depth() > 0 {
		at := p.cond.top()
		p.log.Warn("unterminated ifdef/ifndef", "namespace", at.namespace, "file", at.file, "line", at.line, "open", p.cond.Depth())
	}
	return out, nil
}

// PreprocessLine runs a single line against the current state.
func (p *Preprocessor) PreprocessLine(line string) ([]string, error) {
	return p.preprocessLine(location{}, line)
}

func (p *Preprocessor) lookup(namespace, file string) (string, error) {
	ns, ok := p.sources[namespace]
	if !ok {
		return "", fmt.Errorf("%w: namespace %q", ErrLookup, namespace)
	}
	text, ok := ns.Source(file)
	if !ok {
		return "", fmt.Errorf("%w: file %q in namespace %q", ErrLookup, file, namespace)
	}
	return text, nil
}

func (p *Preprocessor) resolve(namespace, file, text string) (string, error) {
	p.depth++
	defer func() { p.depth-- }()

	var out []string
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		lines, err := p.preprocessLine(location{namespace: namespace, file: file, line: i + 1}, line)
		if err != nil {
			return "", err
		}
		for _, l := range lines {
			if strings.TrimSpace(l) == "" {
				continue
			}
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *Preprocessor) preprocessLine(loc location, line string) ([]string, error) {
	var out []string
	cur := &cursor{toks: p.TokenizeLine(line)}
	for cur.more() {
		tok, _ := cur.next()
		lines, err := p.handleToken(loc, tok, cur)
		out = append(out, lines...)
		if err == nil {
			continue
		}
		if a, ok := err.(aborted); ok {
			return nil, a.error
		}
		err = &Error{Namespace: loc.namespace, File: loc.file, Line: loc.line, Err: err}
		if p.onError == nil {
			return nil, err
		}
		if err := p.onError(err); err != nil {
			return nil, err
		}
		return out, nil
	}
	return out, nil
}

func (p *Preprocessor) handleToken(loc location, tok Token, cur *cursor) ([]string, error) {
	// Conditionals run even inside a closed block, they manage the gate.
	if tok.Kind == TokenCommand && tok.Command.gating() {
		return nil, p.handleConditional(loc, tok.Command, cur)
	}
	if !p.cond.Active() {
		return nil, nil
	}

	switch tok.Kind {
	case TokenOtherCode:
		return []string{p.ReplaceDefines(tok.Text)}, nil
	case TokenCommand:
		return p.handleDirective(loc, tok.Command, cur)
	default:
		return nil, fmt.Errorf("%w: expected command, found %s", ErrUnexpectedToken, tok)
	}
}

func (p *Preprocessor) handleConditional(loc location, cmd Command, cur *cursor) error {
	switch cmd {
	case CmdIfDef, CmdIfNotDef:
		name, err := cur.expect(TokenName)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		_, defined := p.defines[name.Text]
		p.cond.Push(defined == (cmd == CmdIfDef), loc)
	case CmdEndif:
		p.cond.Pop()
	}
	return nil
}

func (p *Preprocessor) handleDirective(loc location, cmd Command, cur *cursor) ([]string, error) {
	switch cmd {
	case CmdInclude:
		ns, err := cur.expect(TokenString)
		if err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
		file, err := cur.expect(TokenString)
		if err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
		text, err := p.lookup(ns.Text, file.Text)
		if err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
		out, err := p.resolve(ns.Text, file.Text, text)
		if err != nil {
			return nil, aborted{err}
		}
		if out == "" {
			return nil, nil
		}
		return strings.Split(out, "\n"), nil

	case CmdDefine:
		name, err := cur.expect(TokenName)
		if err != nil {
			return nil, fmt.Errorf("define: %w", err)
		}
		value, err := cur.expect(TokenString)
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", name.Text, err)
		}
		p.define(name.Text, value.Text)
		return nil, nil

	case CmdUnDefine:
		name, err := cur.expect(TokenName)
		if err != nil {
			return nil, fmt.Errorf("undef: %w", err)
		}
		p.undefine(name.Text)
		return nil, nil

	case CmdError:
		msg, err := cur.expect(TokenString)
		if err != nil {
			return nil, fmt.Errorf("error: %w", err)
		}
		p.log.Error("Error: "+msg.Text, p.logAttrs(loc)...)
		return nil, fmt.Errorf("%w: %s", ErrDirective, msg.Text)

	case CmdWarn:
		msg, err := cur.expect(TokenString)
		if err != nil {
			return nil, fmt.Errorf("warn: %w", err)
		}
		p.log.Warn("Warning: "+msg.Text, p.logAttrs(loc)...)
		return nil, nil
	}
	return nil, nil
}

func (p *Preprocessor) logAttrs(loc location) []any {
	if loc.file == "" {
		return nil
	}
	return []any{"namespace", loc.namespace, "file", loc.file, "line", loc.line}
}

// ---------------- Define table ----------------

func (p *Preprocessor) define(name, value string) {
	if _, ok := p.defines[name]; !ok {
		p.order = nil
	}
	p.defines[name] = value
}

func (p *Preprocessor) undefine(name string) {
	if _, ok := p.defines[name]; ok {
		delete(p.defines, name)
		p.order = nil
	}
}

// ReplaceDefines substitutes every defined name in text by its value. The
// match is a plain substring match, so a name inside a longer identifier is
// replaced too. Longer names are replaced first.
func (p *Preprocessor) ReplaceDefines(text string) string {
	if p.order == nil {
		p.order = make([]string, 0, len(p.defines))
		for name := range p.defines {
			if name != "" {
				p.order = append(p.order, name)
			}
		}
		sort.Slice(p.order, func(i, j int) bool {
			a, b := p.order[i], p.order[j]
			if len(a) != len(b) {
				return len(a) > len(b)
			}
			return a < b
		})
	}
	for _, name := range p.order {
		text = strings.ReplaceAll(text, name, p.defines[name])
	}
	return text
}

// ParseDefine splits a NAME=value command line definition. A bare NAME
// defines "1".
func ParseDefine(s string) (name, value string) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, "1"
}

// ---------------- Conditionals ----------------

type condStack struct {
	stack []condFrame
}

type condFrame struct {
	active bool
	at     location
}

func newCondStack() *condStack  { return &condStack{} }
func (c *condStack) Depth() int { return len(c.stack) }

func (c *condStack) Active() bool {
	if len(c.stack) == 0 {
		return true
	}
	return c.stack[len(c.stack)-1].active
}

func (c *condStack) Push(cond bool, at location) {
	// a frame is only active when every enclosing frame is
	c.stack = append(c.stack, condFrame{
		active: c.Active() && cond,
		at:     at,
	})
}

func (c *condStack) Pop() {
	if len(c.stack) == 0 {
		return
	}
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *condStack) top() location {
	if len(c.stack) == 0 {
		return location{}
	}
	return c.stack[len(c.stack)-1].at
}
