package model

import (
	"path"
	"strings"
)

// TypeRef identifies a type structurally. It is metadata only: two refs are the
// same type when their fields are equal.
type TypeRef struct {
	PkgPath string // empty for builtin and composite types
	Name    string // "Widget", "*Widget", "int", "func(int) *widgets.Widget"
}

// ParseTypeRef parses the fully-qualified spelling produced by TypeRef.String.
//
//	"int"                       -> {"", "int"}
//	"example.com/w.Widget"      -> {"example.com/w", "Widget"}
//	"*example.com/w.Widget"     -> {"example.com/w", "*Widget"}
//	"func(int) *w.Widget"       -> {"", "func(int) *w.Widget"}
func ParseTypeRef(s string) TypeRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeRef{}
	}
	ptr := ""
	body := s
	if strings.HasPrefix(body, "*") {
		ptr = "*"
		body = body[1:]
	}
	// Composite spellings are opaque.
	if strings.ContainsAny(body, "()[]{}* ,") {
		return TypeRef{Name: s}
	}
	dot := strings.LastIndexByte(body, '.')
	if dot <= 0 || dot == len(body)-1 || strings.ContainsRune(body[dot:], '/') {
		return TypeRef{Name: s}
	}
	return TypeRef{PkgPath: body[:dot], Name: ptr + body[dot+1:]}
}

// IsZero reports whether t names no type.
func (t TypeRef) IsZero() bool {
	return t.Name == ""
}

// String returns the fully-qualified spelling, e.g. "*example.com/w.Widget".
func (t TypeRef) String() string {
	if t.PkgPath == "" {
		return t.Name
	}
	if name, ok := strings.CutPrefix(t.Name, "*"); ok {
		return "*" + t.PkgPath + "." + name
	}
	return t.PkgPath + "." + t.Name
}

// Short returns the spelling qualified by package name only, e.g. "*w.Widget".
func (t TypeRef) Short() string {
	if t.PkgPath == "" {
		return t.Name
	}
	pkg := path.Base(t.PkgPath)
	if name, ok := strings.CutPrefix(t.Name, "*"); ok {
		return "*" + pkg + "." + name
	}
	return pkg + "." + t.Name
}
