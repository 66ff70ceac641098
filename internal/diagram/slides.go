package diagram

import (
	"github.com/olehluchkiv/diverify/internal/analyzer"
)

// Slide represents one navigable page in the slide deck.
type Slide struct {
	Title   string `json:"title"`
	Mermaid string `json:"mermaid"`
}

// SlideOptions controls slide deck generation.
type SlideOptions struct {
	Threshold int // component count above which slides activate; 0 = always split
}

// DefaultSlideOptions returns sensible defaults.
func DefaultSlideOptions() SlideOptions {
	return SlideOptions{Threshold: 20}
}

// BuildSlides converts an analysis result into slides. Small graphs and graphs
// without findings get a single slide with the full diagram. Otherwise the
// first slide is an overview without runtime parameters, followed by one slide
// per invalid service showing only its direct neighbourhood.
func BuildSlides(result *analyzer.Result, diagOpts DiagramOptions, opts SlideOptions) []Slide {
	invalid := result.Invalid()
	if len(invalid) == 0 || (opts.Threshold > 0 && len(result.Components) < opts.Threshold) {
		return []Slide{{
			Title:   "Full Diagram",
			Mermaid: GenerateMermaid(result, diagOpts),
		}}
	}

	overviewOpts := diagOpts
	overviewOpts.ShowParams = false
	overviewOpts.ShowMethodTag = false
	slides := []Slide{{
		Title:   "Overview",
		Mermaid: GenerateMermaid(result, overviewOpts),
	}}

	for _, v := range invalid {
		sub := analyzer.Filter(result, analyzer.FilterOptions{Focus: v.ServiceType})
		slides = append(slides, Slide{
			Title:   result.Summary(v),
			Mermaid: GenerateMermaid(sub, diagOpts),
		})
	}
	return slides
}
