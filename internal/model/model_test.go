package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeRef(t *testing.T) {
	cases := []struct {
		in   string
		want TypeRef
	}{
		{"", TypeRef{}},
		{"int", TypeRef{Name: "int"}},
		{"error", TypeRef{Name: "error"}},
		{"example.com/widgets.Widget", TypeRef{PkgPath: "example.com/widgets", Name: "Widget"}},
		{"*example.com/widgets.Widget", TypeRef{PkgPath: "example.com/widgets", Name: "*Widget"}},
		{"time.Duration", TypeRef{PkgPath: "time", Name: "Duration"}},
		{"func(int) *widgets.Widget", TypeRef{Name: "func(int) *widgets.Widget"}},
		{"[]string", TypeRef{Name: "[]string"}},
		{"map[string]int", TypeRef{Name: "map[string]int"}},
		{"example.com/pkg", TypeRef{Name: "example.com/pkg"}},
		{"  int  ", TypeRef{Name: "int"}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTypeRef(tc.in))
		})
	}
}

func TestTypeRefStringRoundTrip(t *testing.T) {
	for _, s := range []string{
		"int",
		"example.com/widgets.Widget",
		"*example.com/widgets.Widget",
		"func(int) *widgets.Widget",
	} {
		assert.Equal(t, s, ParseTypeRef(s).String())
	}
}

func TestTypeRefShort(t *testing.T) {
	assert.Equal(t, "widgets.Widget", ParseTypeRef("example.com/widgets.Widget").Short())
	assert.Equal(t, "*widgets.Widget", ParseTypeRef("*example.com/widgets.Widget").Short())
	assert.Equal(t, "int", ParseTypeRef("int").Short())
	assert.True(t, TypeRef{}.IsZero())
}

func TestNewDependency(t *testing.T) {
	_, err := NewDependency("count", TypeRef{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrZeroType))

	d, err := NewDependency("count", ParseTypeRef("int"), Optional(), WithDefault("3"))
	require.NoError(t, err)
	assert.Equal(t, "count", d.Key)
	assert.True(t, d.IsOptional)
	assert.True(t, d.HasDefault)
	assert.Equal(t, "3", d.DefaultValue)
	assert.False(t, d.Required())
	assert.Equal(t, "int count", d.String())

	assert.Panics(t, func() { MustDependency("x", TypeRef{}) })
}

func TestDependencyIdentityByValue(t *testing.T) {
	a := MustDependency("count", ParseTypeRef("int"))
	b := MustDependency("count", ParseTypeRef("int"))
	set := map[DependencyModel]bool{a: true}
	assert.True(t, set[b])
}

func TestSatisfiedBy(t *testing.T) {
	count := MustDependency("count", ParseTypeRef("int"))

	cases := []struct {
		name  string
		param DependencyModel
		want  bool
	}{
		{"same key and type", MustDependency("count", ParseTypeRef("int")), true},
		{"anonymous parameter", MustDependency("", ParseTypeRef("int")), true},
		{"different key", MustDependency("size", ParseTypeRef("int")), false},
		{"different type", MustDependency("count", ParseTypeRef("int64")), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, count.SatisfiedBy(tc.param))
		})
	}
}

func TestFactoryMethodKind(t *testing.T) {
	k, err := ParseFactoryMethodKind("release")
	require.NoError(t, err)
	assert.Equal(t, FactoryMethodRelease, k)
	assert.Equal(t, "resolve", FactoryMethodResolve.String())

	_, err = ParseFactoryMethodKind("dispose")
	require.Error(t, err)
}

func TestComponentDescriptor(t *testing.T) {
	widget := ParseTypeRef("example.com/widgets.Widget")
	c := &ComponentDescriptor{Name: "widget", Services: []TypeRef{widget}}
	assert.True(t, c.Serves(widget))
	assert.False(t, c.Serves(ParseTypeRef("int")))
	assert.False(t, c.IsFactory())
	assert.Equal(t, "widgets.Widget", c.String())
	assert.Equal(t, "waiting-on-dependency", StateWaitingOnDependency.String())
}
