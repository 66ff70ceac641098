package source

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/olehluchkiv/diverify/internal/analyzer"
	"github.com/olehluchkiv/diverify/internal/container"
	"github.com/olehluchkiv/diverify/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdataDir(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	widgetPtr   = model.ParseTypeRef("*example.com/widgets.Widget")
	consumerPtr = model.ParseTypeRef("*example.com/widgets.Consumer")
	widgetFunc  = model.ParseTypeRef("func(int) *example.com/widgets.Widget")
)

// --- Directive parsing ---

func TestParseDirective(t *testing.T) {
	d, ok := parseDirective("//diverify:factory name=bare release=Destroy,Close")
	require.True(t, ok)
	assert.Equal(t, "factory", d.verb)
	assert.Equal(t, "bare", d.get("name", "fallback"))
	assert.Equal(t, map[string]bool{"Destroy": true, "Close": true}, d.list("release"))
	assert.Nil(t, d.list("missing"))

	d, ok = parseDirective("//diverify:component")
	require.True(t, ok)
	assert.Equal(t, "fallback", d.get("name", "fallback"))

	_, ok = parseDirective("// diverify:component")
	assert.False(t, ok, "directives have no space after the slashes")
	_, ok = parseDirective("//diverify:")
	assert.False(t, ok)
}

func TestFindDirective_SkipsOrdinaryComments(t *testing.T) {
	src := `package p

// NewThing builds a thing.
//
//diverify:component name=thing
func NewThing() int { return 1 }
`
	f, err := parser.ParseFile(token.NewFileSet(), "p.go", src, parser.ParseComments)
	require.NoError(t, err)
	fd := f.Decls[0].(*ast.FuncDecl)

	d, ok := findDirective(fd.Doc, "component")
	require.True(t, ok)
	assert.Equal(t, "thing", d.get("name", ""))
	_, ok = findDirective(fd.Doc, "factory")
	assert.False(t, ok)
	_, ok = findDirective(nil, "component")
	assert.False(t, ok)
}

// --- Loading ---

func TestLoad_Widgets(t *testing.T) {
	c := container.New(quietLogger())
	stats, err := Load(context.Background(), testdataDir("widgets"), c, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Packages)
	assert.Equal(t, 5, stats.Components)
	assert.Equal(t, 3, stats.Factories)

	snap := c.Snapshot()
	widget, ok := snap.Component("widget")
	require.True(t, ok)
	assert.Equal(t, []model.TypeRef{widgetPtr}, widget.Services)
	assert.Equal(t, model.StateWaitingOnDependency, widget.State)
	assert.Equal(t, []model.DependencyModel{model.MustDependency("count", model.ParseTypeRef("int"))}, widget.MissingDependencies)

	dashboard, ok := snap.Component("dashboard")
	require.True(t, ok, "constructors returning (T, error) are accepted")
	assert.Equal(t, widgetFunc, dashboard.Dependencies[0].TargetType, "parameter names are dropped from func types")
	assert.Equal(t, model.StateValid, dashboard.State)

	cache, ok := snap.Component("store.NewCache")
	require.True(t, ok, "default names are package-qualified")
	assert.Equal(t, model.StateValid, cache.State)

	bare, ok := snap.Component("bareFactory")
	require.True(t, ok)
	require.Len(t, bare.Factory.Methods, 3)
	kinds := map[string]model.FactoryMethodKind{}
	for _, m := range bare.Factory.Methods {
		kinds[m.Name] = m.Kind
	}
	assert.Equal(t, model.FactoryMethodResolve, kinds["Create"])
	assert.Equal(t, model.FactoryMethodRelease, kinds["Destroy"], "release= overrides the result-based default")
	assert.Equal(t, model.FactoryMethodRelease, kinds["Reset"], "methods without results release even when release= omits them")

	wf, _ := snap.Component("widgetFactory")
	for _, m := range wf.Factory.Methods {
		if m.Name == "Release" {
			assert.Equal(t, model.FactoryMethodRelease, m.Kind)
		}
	}

	loader, ok := snap.Component("store.Loader")
	require.True(t, ok)
	require.Len(t, loader.Factory.Methods, 1)
	assert.Equal(t, "Invoke", loader.Factory.Methods[0].Name)
	assert.Equal(t, model.ParseTypeRef("*example.com/widgets/store.Cache"), loader.Factory.Methods[0].Returns)
}

func TestLoad_WidgetsAnalysis(t *testing.T) {
	c := container.New(quietLogger())
	_, err := Load(context.Background(), testdataDir("widgets"), c, quietLogger())
	require.NoError(t, err)
	res := analyzer.Analyze(c.Snapshot(), quietLogger())

	widget, ok := res.Lookup(widgetPtr)
	require.True(t, ok)
	assert.Len(t, widget.ReturnedByTypedFactories, 3)
	require.Len(t, widget.TypedFactoriesLackingParameters, 1)
	assert.Equal(t, "widgets.BareFactory (explicit)", widget.TypedFactoriesLackingParameters[0].String())
	assert.True(t, widget.IsResolvable())

	var implicit *analyzer.TypedFactoryInfo
	for _, f := range res.Factories {
		if f.FactoryType == widgetFunc {
			implicit = f
		}
	}
	require.NotNil(t, implicit)
	assert.False(t, implicit.IsExplicitlyRegistered)
	assert.Len(t, implicit.Dependents, 2)

	consumer, ok := res.Lookup(consumerPtr)
	require.True(t, ok)
	assert.Equal(t, []model.TypeRef{widgetPtr}, consumer.DirectDependenciesRequiringFactory)
	assert.False(t, res.IsResolvable(consumerPtr))
}

func TestLoad_NoDirectives(t *testing.T) {
	_, err := Load(context.Background(), testdataDir("empty"), container.New(quietLogger()), quietLogger())
	assert.ErrorIs(t, err, ErrNoDirectives)
}
