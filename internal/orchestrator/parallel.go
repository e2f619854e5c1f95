package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zimalabs/genflow/pkg/models"
)

// outputSeparator joins sub-task outputs in the aggregated result.
const outputSeparator = "\n\n---\n\n"

// ExecuteParallel decomposes an eligible request into sub-tasks and runs
// them through the synchronous path: independents concurrently, dependents
// sequentially afterward in listed order. Ineligible or non-decomposable
// requests delegate straight to Generate.
func (o *Orchestrator) ExecuteParallel(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	if !CanParallelize(req.Prompt) {
		return o.Generate(ctx, req)
	}
	tasks := Decompose(req.Prompt)
	if len(tasks) <= 1 {
		return o.Generate(ctx, req)
	}

	start := time.Now()
	log.Printf("[orchestrator] running %d sub-tasks for session %s", len(tasks), req.SessionID)

	var independent, dependent []models.SubTask
	for _, t := range tasks {
		if t.Independent() {
			independent = append(independent, t)
		} else {
			dependent = append(dependent, t)
		}
	}

	results := make(map[string]*models.GenerationResult, len(tasks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, t := range independent {
		wg.Add(1)
		go func(t models.SubTask) {
			defer wg.Done()
			res := o.runSubTask(ctx, req, t)
			mu.Lock()
			results[t.ID] = res
			mu.Unlock()
		}(t)
	}
	wg.Wait()

	for _, t := range dependent {
		results[t.ID] = o.runSubTask(ctx, req, t)
	}

	return aggregate(tasks, results, req.SessionID, time.Since(start)), nil
}

// runSubTask executes one sub-task as its own synchronous generation,
// converting hard errors into failed results so aggregation stays uniform.
func (o *Orchestrator) runSubTask(ctx context.Context, parent *models.GenerationRequest, t models.SubTask) *models.GenerationResult {
	sub := &models.GenerationRequest{
		Prompt:      t.Prompt,
		Context:     parent.Context,
		SessionID:   parent.SessionID,
		Messages:    parent.Messages,
		FileContext: parent.FileContext,
	}
	res, err := o.Generate(ctx, sub)
	if err != nil {
		return &models.GenerationResult{
			Success:   false,
			Message:   "sub-task failed",
			Errors:    []string{err.Error()},
			SessionID: parent.SessionID,
		}
	}
	return res
}

// aggregate merges sub-task results: outputs joined by a separator, success
// if any sub-task succeeded, file lists de-duplicated by name, usage summed.
func aggregate(tasks []models.SubTask, results map[string]*models.GenerationResult, sessionID string, elapsed time.Duration) *models.GenerationResult {
	agg := &models.GenerationResult{
		SessionID: sessionID,
		Duration:  elapsed,
	}

	var outputs []string
	var errs []string
	seen := make(map[string]struct{})
	succeeded := 0

	for _, t := range tasks {
		res := results[t.ID]
		if res == nil {
			continue
		}
		if res.Success {
			succeeded++
		}
		if res.Output != "" {
			outputs = append(outputs, res.Output)
		}
		errs = append(errs, res.Errors...)
		for _, f := range res.Files {
			if _, dup := seen[f.Name]; dup {
				continue
			}
			seen[f.Name] = struct{}{}
			agg.Files = append(agg.Files, f)
		}
		agg.Usage.Add(res.Usage)
		agg.CostSavings += res.CostSavings
		if agg.Model == "" {
			agg.Model = res.Model
		}
		if agg.RequestID == "" {
			agg.RequestID = res.RequestID
		}
		agg.Complexity = res.Complexity
		agg.ContextTier = res.ContextTier
	}

	agg.Output = strings.Join(outputs, outputSeparator)
	agg.Errors = errs
	agg.Success = succeeded > 0
	agg.Message = fmt.Sprintf("%d of %d sub-tasks succeeded", succeeded, len(tasks))
	return agg
}
