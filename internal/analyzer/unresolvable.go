package analyzer

import (
	"log/slog"

	"github.com/olehluchkiv/diverify/internal/model"
)

// CollectUnresolvable returns one entry per missing dependency of every
// component the engine left waiting, in registry order.
func CollectUnresolvable(reg Registry, logger *slog.Logger) []UnresolvableDependency {
	var out []UnresolvableDependency
	for _, c := range reg.Components() {
		if c.State != model.StateWaitingOnDependency {
			continue
		}
		for _, d := range c.MissingDependencies {
			out = append(out, UnresolvableDependency{Dependency: d, Owner: c})
		}
		if len(c.MissingDependencies) == 0 {
			logger.Warn("component is waiting but reports no missing dependencies", "component", c.Name)
		}
	}
	logger.Debug("unresolvable dependencies collected", "count", len(out))
	return out
}
