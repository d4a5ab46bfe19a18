package restserver

import (
	"math"

	"github.com/chrissnell/glacierfront/internal/database"
	"github.com/chrissnell/glacierfront/internal/sweep"
	"github.com/chrissnell/glacierfront/pkg/ablation"
)

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// transformResult converts an engine result for output
func transformResult(scenario string, r ablation.Result) *ResultResponse {
	resp := &ResultResponse{
		Scenario:    scenario,
		Rate:        finite(r.Rate),
		DLDt:        finite(r.DLDt),
		Numerator:   finite(r.Numerator),
		Denominator: finite(r.Denominator),
		Tolerance:   r.Tolerance,
		Condition:   string(r.Condition),
	}

	if t := r.Trace; t != nil {
		resp.Trace = &TraceResponse{
			HTerminus:   finite(t.HTerminus),
			HAdjacent:   finite(t.HAdjacent),
			HyTerminus:  finite(t.HyTerminus),
			HyAdjacent:  finite(t.HyAdjacent),
			UTerminus:   finite(t.UTerminus),
			UAdjacent:   finite(t.UAdjacent),
			Dx:          finite(t.Dx),
			DHDx:        finite(t.DHDx),
			DHyDx:       finite(t.DHyDx),
			DUDx:        finite(t.DUDx),
			MassBalance: finite(t.MassBalance),
			Numerator:   finite(t.Numerator),
			Denominator: finite(t.Denominator),
			DLDt:        finite(t.DLDt),
			Rate:        finite(t.Rate),
		}
	}

	return resp
}

// transformSweep converts a sweep run for output
func transformSweep(run *sweep.Run, stored bool) *SweepResponse {
	s := run.Summary
	resp := &SweepResponse{
		RunID:      run.ID.String(),
		Sweep:      run.Spec.Name,
		Scenario:   run.Spec.Scenario,
		Parameter:  string(run.Spec.Parameter),
		Convention: run.Convention.String(),
		Stored:     stored,
		Summary: SweepSummaryResponse{
			Points:         s.Points,
			Conditioned:    s.Conditioned,
			IllConditioned: s.IllConditioned,
			Failed:         s.Failed,
			MeanRate:       finite(s.MeanRate),
			StdDevRate:     finite(s.StdDevRate),
			MinRate:        finite(s.MinRate),
			MaxRate:        finite(s.MaxRate),
			SignChanges:    s.SignChanges,
		},
		Points: make([]SweepPointResponse, 0, len(run.Points)),
	}

	for _, p := range run.Points {
		pr := SweepPointResponse{Index: p.Index, Value: p.Value}
		if p.Err != nil {
			pr.Error = p.Err.Error()
		} else {
			pr.Result = transformResult("", p.Result)
		}
		resp.Points = append(resp.Points, pr)
	}

	return resp
}

// transformStoredRun converts a stored sweep run for output. NULL columns
// stay nil.
func transformStoredRun(rec *database.SweepRun) *StoredRunResponse {
	resp := &StoredRunResponse{
		RunID:      rec.RunID,
		Sweep:      rec.SweepName,
		Scenario:   rec.Scenario,
		Parameter:  rec.Parameter,
		Convention: rec.Convention,
		Start:      rec.StartValue,
		Stop:       rec.StopValue,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Summary: SweepSummaryResponse{
			Points:         rec.PointCount,
			Conditioned:    rec.Conditioned,
			IllConditioned: rec.IllConditioned,
			Failed:         rec.Failed,
			MeanRate:       rec.MeanRate,
			StdDevRate:     rec.StdDevRate,
			MinRate:        rec.MinRate,
			MaxRate:        rec.MaxRate,
			SignChanges:    rec.SignChanges,
		},
		Points: make([]StoredPointResponse, 0, len(rec.Points)),
	}

	for _, p := range rec.Points {
		resp.Points = append(resp.Points, StoredPointResponse{
			Index:       p.PointIndex,
			Value:       p.Value,
			Rate:        p.Rate,
			DLDt:        p.DLDt,
			Numerator:   p.Numerator,
			Denominator: p.Denominator,
			Condition:   p.Condition,
			Error:       p.Error,
		})
	}

	return resp
}
