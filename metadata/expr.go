// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

// Expr is a parsed type expression: a type name and, for generic
// instantiations, its type arguments.
type Expr struct {
	Name string
	Args []*Expr
}

func (e *Expr) String() string {
	if len(e.Args) == 0 {
		return e.Name
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s`%d<%s>", e.Name, len(e.Args), strings.Join(args, ", "))
}

// SyntaxError reports a malformed type expression.
type SyntaxError struct {
	Expr   string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("type expression %q: offset %d: %s", e.Expr, e.Offset, e.Msg)
}

type parser struct {
	s   string
	pos int
}

// ParseExpr parses s. Generic names may carry the arity suffix (IMap`2) or
// omit it; when present it must agree with the number of arguments.
func ParseExpr(s string) (*Expr, error) {
	p := &parser{s: s}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.errorf("unexpected %q", p.s[p.pos:])
	}
	return e, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Expr: p.s, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func isNameByte(c byte) bool {
	return c == '.' || c == '_' || c == '`' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func (p *parser) expr() (*Expr, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && isNameByte(p.s[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil, p.errorf("expected a type name")
	}

	name, arity := p.s[start:p.pos], -1
	if i := strings.IndexByte(name, '`'); i >= 0 {
		n, err := strconv.Atoi(name[i+1:])
		if err != nil || n <= 0 {
			return nil, &SyntaxError{Expr: p.s, Offset: start + i, Msg: "malformed arity suffix"}
		}
		name, arity = name[:i], n
	}
	e := &Expr{Name: name}

	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '<' {
		p.pos++
		for {
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, arg)
			p.skipSpace()
			if p.pos >= len(p.s) {
				return nil, p.errorf("unterminated type argument list")
			}
			c := p.s[p.pos]
			p.pos++
			if c == '>' {
				break
			}
			if c != ',' {
				return nil, p.errorf("expected ',' or '>'")
			}
		}
	}

	if arity >= 0 && arity != len(e.Args) {
		return nil, &SyntaxError{Expr: p.s, Offset: start, Msg: fmt.Sprintf("%s declares %d type arguments but has %d", name, arity, len(e.Args))}
	}
	return e, nil
}

var fundamentals = map[string]string{
	"Boolean": "b1",
	"UInt8":   "u1",
	"Int16":   "i2",
	"UInt16":  "u2",
	"Int32":   "i4",
	"UInt32":  "u4",
	"Int64":   "i8",
	"UInt64":  "u8",
	"Single":  "f4",
	"Double":  "f8",
	"Char16":  "c2",
	"String":  "string",
	"Guid":    "g16",
	"Object":  "cinterface(IInspectable)",
}

// maxDepth bounds nesting, including runtime class default interfaces, so
// that a cyclic database fails instead of recursing forever.
const maxDepth = 32

// Signature returns the signature of the type expression s.
func (db *DB) Signature(s string) (string, error) {
	e, err := ParseExpr(s)
	if err != nil {
		return "", err
	}
	return db.signature(e, 0)
}

func (db *DB) signature(e *Expr, depth int) (string, error) {
	if depth > maxDepth {
		return "", fmt.Errorf("%s: type nesting too deep", e.Name)
	}
	if sig, ok := fundamentals[e.Name]; ok {
		if len(e.Args) != 0 {
			return "", fmt.Errorf("%s is not generic", e.Name)
		}
		return sig, nil
	}

	t, ok := db.Lookup(e.Name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, e.Name)
	}
	if len(e.Args) != t.Arity {
		return "", fmt.Errorf("%s takes %d type arguments, got %d", t.Name, t.Arity, len(e.Args))
	}

	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		sig, err := db.signature(a, depth+1)
		if err != nil {
			return "", err
		}
		args[i] = sig
	}

	switch t.Kind {
	case KindEnum:
		return winrt.EnumSignature(t.Name, t.Flags), nil
	case KindRuntimeClass:
		def, err := ParseExpr(t.Default)
		if err != nil {
			return "", fmt.Errorf("%s: default interface: %w", t.Name, err)
		}
		defSig, err := db.signature(def, depth+1)
		if err != nil {
			return "", fmt.Errorf("%s: default interface: %w", t.Name, err)
		}
		return winrt.RuntimeClassSignature(t.Name, defSig), nil
	}

	if t.Arity > 0 {
		return winrt.ParameterizedSignature(t.iid, args...), nil
	}
	if t.Kind == KindDelegate {
		return winrt.DelegateSignature(t.iid), nil
	}
	return winrt.InterfaceSignature(t.iid), nil
}

// IID returns the interface identifier of the type expression s along with
// its signature. Non-generic interfaces and delegates report their assigned
// GUID; generic instantiations report the derived one; runtime classes report
// their default interface's.
func (db *DB) IID(s string) (*com.IID, string, error) {
	e, err := ParseExpr(s)
	if err != nil {
		return nil, "", err
	}
	sig, err := db.signature(e, 0)
	if err != nil {
		return nil, "", err
	}
	iid, err := db.iid(e, 0)
	if err != nil {
		return nil, "", err
	}
	return iid, sig, nil
}

func (db *DB) iid(e *Expr, depth int) (*com.IID, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%s: type nesting too deep", e.Name)
	}
	t, ok := db.Lookup(e.Name)
	if !ok {
		return nil, fmt.Errorf("%s has no interface identifier", e.Name)
	}
	switch t.Kind {
	case KindEnum:
		return nil, fmt.Errorf("%s has no interface identifier", e.Name)
	case KindRuntimeClass:
		def, err := ParseExpr(t.Default)
		if err != nil {
			return nil, err
		}
		return db.iid(def, depth+1)
	}
	if t.Arity == 0 {
		return t.iid, nil
	}
	sig, err := db.signature(e, depth)
	if err != nil {
		return nil, err
	}
	return winrt.IIDFromSignature(sig), nil
}
