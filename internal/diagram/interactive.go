package diagram

import (
	"slices"
	"strings"

	"github.com/olehluchkiv/diverify/internal/analyzer"
)

// InteractiveService holds prepared data for a service node in the interactive UI.
type InteractiveService struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	PkgPath  string   `json:"pkgPath"`
	Valid    bool     `json:"valid"`
	Summary  string   `json:"summary,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// InteractiveFactory holds prepared data for a typed factory node.
type InteractiveFactory struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Explicit bool     `json:"explicit"`
	Methods  []string `json:"methods"`
}

// InteractiveData holds all data needed for the interactive UI.
type InteractiveData struct {
	Slides      []Slide              `json:"slides"`
	Services    []InteractiveService `json:"services"`
	Factories   []InteractiveFactory `json:"factories"`
	RepoAddress string               `json:"repoAddress"`
}

// PrepareInteractiveData converts an analyzer.Result into the data structure
// the interactive server needs, computing node IDs and diagnostics.
func PrepareInteractiveData(result *analyzer.Result, opts DiagramOptions) InteractiveData {
	data := InteractiveData{
		Slides:    BuildSlides(result, opts, DefaultSlideOptions()),
		Services:  []InteractiveService{},
		Factories: []InteractiveFactory{},
	}

	for _, v := range result.Services {
		svc := InteractiveService{
			ID:      NodeID(v.ServiceType),
			Name:    v.ServiceType.Short(),
			PkgPath: v.ServiceType.PkgPath,
			Valid:   v.IsResolvable(),
		}
		if !svc.Valid {
			svc.Summary = result.Summary(v)
			svc.Messages = slices.Collect(result.Messages(v))
		}
		data.Services = append(data.Services, svc)
	}
	// Invalid services first, then by name.
	slices.SortFunc(data.Services, func(a, b InteractiveService) int {
		if a.Valid != b.Valid {
			if !a.Valid {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	for _, f := range result.Factories {
		methods := make([]string, 0, len(f.ResolveMethods))
		for _, m := range f.ResolveMethods {
			methods = append(methods, m.String())
		}
		data.Factories = append(data.Factories, InteractiveFactory{
			ID:       NodeID(f.FactoryType),
			Name:     f.FactoryType.Short(),
			Explicit: f.IsExplicitlyRegistered,
			Methods:  methods,
		})
	}
	return data
}
