package plan

import (
    "context"
    "errors"
    "fmt"
    "log"

    "showplan/internal/model"
)

// ErrNoCandidate is returned when every generation attempt failed before
// producing a single parseable itinerary.
var ErrNoCandidate = errors.New("plan: no candidate itinerary produced")

// Controller drives the generate, verify, refine loop. It keeps the best
// candidate seen so far (strictly fewer issues replaces it, ties keep the
// earlier one) and never returns anything worse than that candidate.
type Controller struct {
    Source      PlanSource
    Verifier    *Verifier
    Fixer       *Fixer
    MaxAttempts int

    // OnAttempt, when set, is called after each verified attempt. Used by
    // the API layer to stream progress; must not block for long.
    OnAttempt func(model.Attempt)
}

// Run executes up to MaxAttempts generate/verify cycles, refining from the
// best candidate with formatted feedback after each infeasible attempt. If
// the loop exhausts without a feasible plan, one extra rule-based repair
// attempt is made on the best candidate and adopted only when it improves.
func (c *Controller) Run(ctx context.Context, req model.PlanRequest) (model.RunResult, error) {
    maxAttempts := c.MaxAttempts
    if req.MaxAttempts > 0 {
        maxAttempts = req.MaxAttempts
    }
    if maxAttempts < 1 {
        maxAttempts = 1
    }

    var (
        attempts   []model.Attempt
        best       model.Itinerary
        bestReport model.VerificationReport
        haveBest   bool
        lastErr    error
    )

    for attempt := 1; attempt <= maxAttempts; attempt++ {
        if err := ctx.Err(); err != nil {
            break
        }
        var (
            candidate model.Itinerary
            err       error
        )
        if !haveBest {
            candidate, err = c.Source.Generate(ctx, req)
        } else {
            candidate, err = c.Source.Refine(ctx, req, best, FormatFeedback(bestReport))
        }
        if err != nil {
            lastErr = err
            log.Printf("plan: attempt %d generation failed: %v", attempt, err)
            continue
        }

        report := c.Verifier.Verify(ctx, &candidate)
        rec := model.Attempt{Attempt: len(attempts) + 1, Itinerary: candidate, Verification: report}
        attempts = append(attempts, rec)
        if c.OnAttempt != nil {
            c.OnAttempt(rec)
        }

        if !haveBest || report.TotalIssues < bestReport.TotalIssues {
            best, bestReport, haveBest = candidate, report, true
        }
        if report.IsFeasible {
            return model.RunResult{
                FinalItinerary: candidate,
                Verification:   report,
                IsValid:        true,
                Attempts:       attempts,
                TotalAttempts:  len(attempts),
            }, nil
        }
    }

    if !haveBest {
        if lastErr != nil {
            return model.RunResult{}, fmt.Errorf("%w: %v", ErrNoCandidate, lastErr)
        }
        return model.RunResult{}, ErrNoCandidate
    }

    // Last resort: repair the best candidate locally and keep the result
    // only if it does not regress.
    fixed := c.Fixer.Fix(best, bestReport)
    fixedReport := c.Verifier.Verify(ctx, &fixed)
    if fixedReport.IsFeasible || fixedReport.TotalIssues < bestReport.TotalIssues {
        rec := model.Attempt{Attempt: len(attempts) + 1, Itinerary: fixed, Verification: fixedReport}
        attempts = append(attempts, rec)
        if c.OnAttempt != nil {
            c.OnAttempt(rec)
        }
        best, bestReport = fixed, fixedReport
    }

    return model.RunResult{
        FinalItinerary: best,
        Verification:   bestReport,
        IsValid:        bestReport.IsFeasible,
        Attempts:       attempts,
        TotalAttempts:  len(attempts),
    }, nil
}
