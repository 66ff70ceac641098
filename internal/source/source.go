// Package source registers components declared in Go source. Constructors and
// factory interfaces are marked with //diverify: directives and type-checked
// through golang.org/x/tools/go/packages.
package source

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/types"
	"log/slog"

	"golang.org/x/tools/go/packages"

	"github.com/olehluchkiv/diverify/internal/container"
	"github.com/olehluchkiv/diverify/internal/model"
)

// ErrNoDirectives is returned when the loaded packages declare nothing.
var ErrNoDirectives = errors.New("source: no //diverify directives found")

// Stats counts what a Load registered.
type Stats struct {
	Packages   int
	Components int
	Factories  int
	Delegates  int
}

type declarations struct {
	delegates  []container.Delegate
	components []container.Registration
	factories  []factoryDecl
}

type factoryDecl struct {
	name    string
	typ     model.TypeRef
	methods []model.FactoryMethod // empty for func types
}

// Load type-checks the packages under dir and registers every annotated
// constructor and factory into c. Delegate shapes are declared first so that
// factories and implicit factories can refer to them.
func Load(ctx context.Context, dir string, c *container.Container, logger *slog.Logger) (Stats, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax |
			packages.NeedTypesInfo,
		Dir:     dir,
		Context: ctx,
	}

	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return Stats{}, fmt.Errorf("loading packages: %w", err)
	}
	logger.Info("packages loaded", "packages_count", len(pkgs))

	var decls declarations
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			logger.Warn("package load error", "package", pkg.PkgPath, "error", e.Msg)
		}
		if pkg.Types == nil || pkg.TypesInfo == nil {
			continue
		}
		for _, file := range pkg.Syntax {
			if err := decls.scanFile(pkg, file, logger); err != nil {
				return Stats{}, err
			}
		}
	}

	stats := Stats{
		Packages:   len(pkgs),
		Components: len(decls.components),
		Factories:  len(decls.factories),
		Delegates:  len(decls.delegates),
	}
	if stats.Components == 0 && stats.Factories == 0 {
		return stats, fmt.Errorf("%w in %s", ErrNoDirectives, dir)
	}

	for _, d := range decls.delegates {
		if err := c.DeclareDelegate(d); err != nil {
			return stats, err
		}
	}
	for _, r := range decls.components {
		if err := c.Register(r); err != nil {
			return stats, err
		}
	}
	for _, f := range decls.factories {
		if err := c.RegisterFactory(f.name, f.typ, f.methods); err != nil {
			return stats, err
		}
	}

	logger.Info("source declarations registered",
		"components", stats.Components,
		"factories", stats.Factories,
		"delegates", stats.Delegates)
	return stats, nil
}

func (d *declarations) scanFile(pkg *packages.Package, file *ast.File, logger *slog.Logger) error {
	for _, decl := range file.Decls {
		switch decl := decl.(type) {
		case *ast.FuncDecl:
			dir, ok := findDirective(decl.Doc, "component")
			if !ok {
				continue
			}
			if err := d.addConstructor(pkg, decl, dir); err != nil {
				return err
			}
		case *ast.GenDecl:
			for _, spec := range decl.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(decl.Specs) == 1 {
					doc = decl.Doc
				}
				dir, ok := findDirective(doc, "factory")
				if !ok {
					continue
				}
				if err := d.addFactory(pkg, ts, dir); err != nil {
					return err
				}
			}
		}
	}
	logger.Debug("file scanned", "package", pkg.PkgPath, "file", pkg.Fset.Position(file.Pos()).Filename)
	return nil
}

func (d *declarations) addConstructor(pkg *packages.Package, decl *ast.FuncDecl, dir directive) error {
	pos := pkg.Fset.Position(decl.Pos())
	if decl.Recv != nil {
		return fmt.Errorf("%s: %w: component directive on a method", pos, ErrMalformedDirective)
	}
	fn, ok := pkg.TypesInfo.Defs[decl.Name].(*types.Func)
	if !ok {
		return fmt.Errorf("%s: %w: %s is not type-checked", pos, ErrMalformedDirective, decl.Name.Name)
	}
	sig := fn.Type().(*types.Signature)
	if !constructorResults(sig.Results()) {
		return fmt.Errorf("%s: %w: %s must return T or (T, error)", pos, ErrMalformedDirective, decl.Name.Name)
	}

	svc := refFor(sig.Results().At(0).Type())
	reg := container.Registration{
		Name:     dir.get("name", pkg.Name+"."+decl.Name.Name),
		Services: []model.TypeRef{svc},
	}
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		dep, err := model.NewDependency(p.Name(), refFor(p.Type()))
		if err != nil {
			return fmt.Errorf("%s: %s parameter %d: %w", pos, decl.Name.Name, i, err)
		}
		reg.Dependencies = append(reg.Dependencies, dep)
		d.addDelegate(p.Type())
	}
	d.components = append(d.components, reg)
	return nil
}

func (d *declarations) addFactory(pkg *packages.Package, ts *ast.TypeSpec, dir directive) error {
	pos := pkg.Fset.Position(ts.Pos())
	tn, ok := pkg.TypesInfo.Defs[ts.Name].(*types.TypeName)
	if !ok {
		return fmt.Errorf("%s: %w: %s is not type-checked", pos, ErrMalformedDirective, ts.Name.Name)
	}
	typ := refFor(tn.Type())
	name := dir.get("name", pkg.Name+"."+ts.Name.Name)

	switch u := tn.Type().Underlying().(type) {
	case *types.Signature:
		// A named func type is a delegate registered explicitly.
		if u.Results().Len() == 0 {
			return fmt.Errorf("%s: %w: func factory %s returns nothing", pos, ErrMalformedDirective, ts.Name.Name)
		}
		d.delegates = append(d.delegates, delegateFor(typ, u))
		d.factories = append(d.factories, factoryDecl{name: name, typ: typ})
		return nil
	case *types.Interface:
		release := dir.list("release")
		f := factoryDecl{name: name, typ: typ}
		for i := 0; i < u.NumMethods(); i++ {
			m := u.Method(i)
			f.methods = append(f.methods, factoryMethod(m, release))
		}
		d.factories = append(d.factories, f)
		return nil
	default:
		return fmt.Errorf("%s: %w: factory %s must be an interface or func type", pos, ErrMalformedDirective, ts.Name.Name)
	}
}

// addDelegate declares t when it is an unnamed func type with a result.
func (d *declarations) addDelegate(t types.Type) {
	sig, ok := types.Unalias(t).(*types.Signature)
	if !ok || sig.Results().Len() == 0 {
		return
	}
	d.delegates = append(d.delegates, delegateFor(refFor(t), sig))
}

func delegateFor(typ model.TypeRef, sig *types.Signature) container.Delegate {
	del := container.Delegate{Type: typ, Returns: refFor(sig.Results().At(0).Type())}
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		// Func parameter names are not part of the type; match by type only.
		del.Parameters = append(del.Parameters, model.MustDependency("", refFor(params.At(i).Type())))
	}
	return del
}

func factoryMethod(m *types.Func, release map[string]bool) model.FactoryMethod {
	sig := m.Type().(*types.Signature)
	fm := model.FactoryMethod{Name: m.Name(), Kind: model.FactoryMethodResolve}
	if sig.Results().Len() > 0 {
		fm.Returns = refFor(sig.Results().At(0).Type())
	}
	// A method without results can only release, whatever release= lists.
	if sig.Results().Len() == 0 || release[m.Name()] {
		fm.Kind = model.FactoryMethodRelease
	}
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		fm.Parameters = append(fm.Parameters, model.MustDependency(p.Name(), refFor(p.Type())))
	}
	return fm
}

func constructorResults(res *types.Tuple) bool {
	switch res.Len() {
	case 1:
		return true
	case 2:
		return types.Identical(res.At(1).Type(), types.Universe.Lookup("error").Type())
	}
	return false
}

// refFor spells t with full package paths. Parameter names are dropped from
// func types so that identical signatures map to the same ref.
func refFor(t types.Type) model.TypeRef {
	t = types.Unalias(t)
	if sig, ok := t.(*types.Signature); ok {
		t = types.NewSignatureType(nil, nil, nil, unnamed(sig.Params()), unnamed(sig.Results()), sig.Variadic())
	}
	return model.ParseTypeRef(types.TypeString(t, nil))
}

func unnamed(tuple *types.Tuple) *types.Tuple {
	vars := make([]*types.Var, tuple.Len())
	for i := range vars {
		v := tuple.At(i)
		vars[i] = types.NewParam(v.Pos(), v.Pkg(), "", v.Type())
	}
	return types.NewTuple(vars...)
}
