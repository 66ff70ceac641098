package source

import (
	"errors"
	"go/ast"
	"strings"
)

// ErrMalformedDirective is returned for a directive on a declaration it
// cannot describe.
var ErrMalformedDirective = errors.New("source: malformed directive")

const directivePrefix = "//diverify:"

// directive is one parsed "//diverify:<verb> key=value ..." line.
type directive struct {
	verb string
	args map[string]string
}

func (d directive) get(key, fallback string) string {
	if v, ok := d.args[key]; ok && v != "" {
		return v
	}
	return fallback
}

// list returns the comma-separated values of key, or nil when key is absent.
func (d directive) list(key string) map[string]bool {
	v, ok := d.args[key]
	if !ok {
		return nil
	}
	out := make(map[string]bool)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}

func parseDirective(text string) (directive, bool) {
	rest, ok := strings.CutPrefix(text, directivePrefix)
	if !ok {
		return directive{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return directive{}, false
	}
	d := directive{verb: fields[0], args: make(map[string]string)}
	for _, f := range fields[1:] {
		k, v, _ := strings.Cut(f, "=")
		d.args[k] = v
	}
	return d, true
}

// findDirective returns the first directive with verb in doc. Directive lines
// are excluded from CommentGroup.Text, so the raw list is scanned.
func findDirective(doc *ast.CommentGroup, verb string) (directive, bool) {
	if doc == nil {
		return directive{}, false
	}
	for _, c := range doc.List {
		if d, ok := parseDirective(c.Text); ok && d.verb == verb {
			return d, true
		}
	}
	return directive{}, false
}
