package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zimalabs/genflow/internal/cache"
	"github.com/zimalabs/genflow/internal/config"
	"github.com/zimalabs/genflow/internal/renderer"
	"github.com/zimalabs/genflow/internal/warmpool"
	"github.com/zimalabs/genflow/internal/workspace"
	"github.com/zimalabs/genflow/pkg/models"
)

// Orchestrator wires classification, context tiering, caching, warm-up, and
// renderer invocation into the generation flows.
type Orchestrator struct {
	cfg        *config.Config
	classifier *Classifier
	cache      *cache.Cache
	pool       *warmpool.Pool
	workspace  *workspace.Workspace
	factory    renderer.Factory
	preamble   PreambleProvider
}

// New creates an Orchestrator over the given collaborators.
func New(cfg *config.Config, respCache *cache.Cache, pool *warmpool.Pool, ws *workspace.Workspace, factory renderer.Factory) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		classifier: NewClassifier(cfg.Models),
		cache:      respCache,
		pool:       pool,
		workspace:  ws,
		factory:    factory,
		preamble:   StaticPreamble(""),
	}
}

// SetPreamble overrides the system-prompt preamble provider.
func (o *Orchestrator) SetPreamble(p PreambleProvider) {
	o.preamble = p
}

// Cache exposes the response cache for stats reporting.
func (o *Orchestrator) Cache() *cache.Cache { return o.cache }

// Pool exposes the warm pool for stats reporting.
func (o *Orchestrator) Pool() *warmpool.Pool { return o.pool }

// Plan classifies a prompt without running it: the complexity, routed model,
// and context tier a submission would use. The job registry records these at
// submission time.
func (o *Orchestrator) Plan(prompt string, messageCount int) (models.TaskComplexity, string, models.ContextTier) {
	complexity := o.classifier.Classify(prompt, messageCount)
	return complexity, o.classifier.ModelFor(complexity), SelectContextTier(prompt, messageCount)
}

// plan is the routing decision for one request, computed before any renderer
// work starts.
type plan struct {
	requestID   string
	complexity  models.TaskComplexity
	model       string
	tier        models.ContextTier
	messages    []models.ConversationMessage
	fileContext string
	prompt      string
}

// prepare validates the request and computes the full routing plan.
func (o *Orchestrator) prepare(req *models.GenerationRequest) (*plan, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	complexity := o.classifier.Classify(req.Prompt, len(req.Messages))
	tier := SelectContextTier(req.Prompt, len(req.Messages))
	messages := FilterMessages(req.Messages, tier)
	fileContext := SummarizeFileContext(req.FileContext, tier)
	if fileContext == "" {
		fileContext = req.Context
	}

	p := &plan{
		requestID:   uuid.New().String(),
		complexity:  complexity,
		model:       o.classifier.ModelFor(complexity),
		tier:        tier,
		messages:    messages,
		fileContext: fileContext,
	}
	p.prompt = composePrompt(o.preamble.SystemPreamble(), p.fileContext, p.messages, req.Prompt)
	return p, nil
}

// Generate runs one synchronous generation: classify, consult the cache,
// invoke the renderer, enumerate generated files, and record the result.
func (o *Orchestrator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	start := time.Now()

	p, err := o.prepare(req)
	if err != nil {
		return nil, err
	}

	cacheKey := cache.Key(req.Prompt, len(p.messages))
	if cache.IsCacheable(req.Prompt) {
		if hit := o.cache.Get(cacheKey); hit != nil {
			log.Printf("[orchestrator] cache hit for request %s", p.requestID)
			copied := *hit
			copied.RequestID = p.requestID
			copied.SessionID = req.SessionID
			copied.Duration = time.Since(start)
			// Annotate so callers can tell a replay from a fresh generation;
			// the savings grow by the renderer spend the hit avoided.
			copied.Message = "served from cache"
			copied.CostSavings = hit.CostSavings + hit.Usage.Cost
			return &copied, nil
		}
	}

	// Warm the session in the background; never blocks the request.
	go o.pool.WarmSession(context.Background(), req.SessionID, o.preamble.SystemPreamble())

	result := o.invoke(ctx, p, req.SessionID, nil)
	result.Duration = time.Since(start)

	if result.Success && cache.IsCacheable(req.Prompt) {
		o.cache.Put(cacheKey, result)
	}
	return result, nil
}

// invoke runs one renderer invocation to completion and assembles the result.
// onContent, when non-nil, receives each content fragment as it arrives.
func (o *Orchestrator) invoke(ctx context.Context, p *plan, sessionID string, onContent func(string)) *models.GenerationResult {
	result := &models.GenerationResult{
		Model:       p.model,
		SessionID:   sessionID,
		Complexity:  p.complexity,
		ContextTier: p.tier,
		RequestID:   p.requestID,
	}

	before, err := o.workspace.Snapshot()
	if err != nil {
		log.Printf("[orchestrator] workspace snapshot failed: %v", err)
		before = map[string]struct{}{}
	}

	// Streaming invocations watch the output root while the renderer runs so
	// the files event can be built from creation notifications instead of a
	// second directory scan.
	var watcher *workspace.Watcher
	if onContent != nil {
		if w, werr := o.workspace.Watch(); werr == nil {
			watcher = w
			defer watcher.Close()
		} else {
			log.Printf("[orchestrator] file watcher unavailable, will rescan: %v", werr)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Generation)
	defer cancel()

	r := o.factory.New(ctx)
	o.pool.RecordStart(sessionID)

	if err := r.Start(p.prompt, renderer.StartOptions{Model: p.model, WorkDir: o.workspace.Root()}); err != nil {
		result.Message = "generation failed"
		result.Errors = append(result.Errors, fmt.Sprintf("start renderer: %v", err))
		return result
	}

	var output strings.Builder
	var errs []string
	var usage *models.Usage
	var resultText string

	for ev := range r.Events() {
		switch ev.Type {
		case renderer.EventContent:
			output.WriteString(ev.Text)
			if onContent != nil {
				onContent(ev.Text)
			}
		case renderer.EventUsage:
			usage = ev.Usage
			resultText = ev.Text
		case renderer.EventError:
			errs = append(errs, ev.Err)
		}
		if ev.Model != "" {
			result.Model = ev.Model
		}
	}

	waitErr := r.Wait()

	result.Output = output.String()
	result.Errors = errs
	if usage != nil {
		result.Usage = *usage
	}
	if resultText != "" && result.Output == "" {
		result.Output = resultText
	}

	if ctx.Err() == context.DeadlineExceeded {
		// The process context is already canceled; Kill only reaps. Keep
		// whatever output arrived before the deadline.
		_ = r.Kill()
		result.Success = false
		result.Message = fmt.Sprintf("generation timed out after %v", o.cfg.Timeouts.Generation)
		result.Errors = append(result.Errors, "timeout")
		return result
	}

	if waitErr != nil {
		result.Success = false
		result.Message = "generation failed"
		result.Errors = append(result.Errors, waitErr.Error())
		return result
	}

	files := o.collectFiles(before, watcher)
	files, err = o.workspace.Relocate(files, sessionID)
	if err != nil {
		log.Printf("[orchestrator] relocate failed: %v", err)
	}
	result.Files = files

	result.Success = len(errs) == 0
	if result.Success {
		result.Message = "generation completed"
		result.CostSavings = o.costSavings(p.complexity, result.Usage)
	} else {
		result.Message = "generation completed with errors"
	}
	return result
}

// collectFiles enumerates files the invocation produced. The watcher's
// creation notifications are preferred; fsnotify delivery is asynchronous, so
// an empty watcher result falls back to the snapshot diff.
func (o *Orchestrator) collectFiles(before map[string]struct{}, watcher *workspace.Watcher) []models.GeneratedFile {
	if watcher != nil {
		if files, err := o.workspace.Describe(watcher.Created()); err == nil && len(files) > 0 {
			return files
		}
	}
	files, err := o.workspace.Diff(before)
	if err != nil {
		log.Printf("[orchestrator] workspace diff failed: %v", err)
	}
	return files
}

// costSavings estimates what the request saved versus always routing to the
// complex-tier model, based on actual token spend. A hint, not an invoice.
func (o *Orchestrator) costSavings(complexity models.TaskComplexity, usage models.Usage) float64 {
	if complexity == models.ComplexityComplex || usage.TotalTokens() == 0 {
		return 0
	}
	switch complexity {
	case models.ComplexitySimple:
		return usage.Cost * 4
	default:
		return usage.Cost * 0.6
	}
}
