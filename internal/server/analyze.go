package server

import (
	"context"
	"time"

	"github.com/olehluchkiv/diverify/internal/diagram"
	"github.com/olehluchkiv/diverify/internal/pipeline"
)

// Refresh re-runs the analysis and swaps it in. A failed run keeps the
// previous data on screen next to the error.
func (s *Server) Refresh(ctx context.Context) error {
	run, cleanup, err := s.run(ctx)
	if err != nil {
		s.logger.Error("analysis failed", "error", err)
		s.mu.Lock()
		s.current.Err = err.Error()
		s.current.UpdatedAt = time.Now()
		s.mu.Unlock()
		return err
	}

	next := view{
		Data:      prepare(run),
		Report:    run.Report(),
		UpdatedAt: time.Now(),
	}

	s.mu.Lock()
	previous := s.cleanup
	s.current = next
	s.last = run
	s.cleanup = cleanup
	s.mu.Unlock()
	previous()

	s.logger.Info("analysis refreshed",
		"run_id", run.ID,
		"services", len(next.Report.Services),
		"invalid", next.Report.Invalid)
	return nil
}

// prepare converts a run into the data the interactive page needs.
func prepare(run *pipeline.Run) diagram.InteractiveData {
	data := diagram.PrepareInteractiveData(run.Result, diagram.DefaultDiagramOptions())
	data.RepoAddress = run.Input
	return data
}

// lastRun returns the most recent successful run, or nil.
func (s *Server) lastRun() *pipeline.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
