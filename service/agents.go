package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lawerapp-backend/models"

	"go.uber.org/zap"
)

const agentSearchLimit = 5

// Agent is a specialized consultation handler selected by the Coordinator
type Agent interface {
	Name() string
	Priority() int // Lower wins
	CanHandle(lc models.LegalContext) bool
	ProcessQuery(ctx context.Context, query string, lc models.LegalContext) (*models.AgentResponse, error)
}

// Searcher is the retrieval capability agents consult for sources
type Searcher interface {
	Search(ctx context.Context, query string, lc models.LegalContext, opts SearchOptions) ([]models.SearchResult, error)
}

// AgentDeps are the collaborators shared by every specialist agent
type AgentDeps struct {
	Retriever     Searcher // Optional; nil skips retrieval
	Generator     TextGenerator
	Logger        *zap.Logger
	AugmentPrompt bool // Append retrieved passages to the generation prompt
}

type agentProfile struct {
	name      string
	specialty models.LegalArea
	label     string
	priority  int
	threshold float64
	reasoning string
	rules     []suggestionRule
}

// SpecialistAgent answers queries for a single legal area
type SpecialistAgent struct {
	profile agentProfile
	deps    AgentDeps
}

func newSpecialistAgent(profile agentProfile, deps AgentDeps) *SpecialistAgent {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Logger = deps.Logger.With(zap.String("agent", profile.name))
	return &SpecialistAgent{profile: profile, deps: deps}
}

// NewConsumerProtectionAgent handles consumer_protection queries
func NewConsumerProtectionAgent(deps AgentDeps) *SpecialistAgent {
	return newSpecialistAgent(agentProfile{
		name:      "consumer_protection",
		specialty: models.AreaConsumerProtection,
		label:     "[ЗАЩИТА ПРАВ ПОТРЕБИТЕЛЕЙ]",
		priority:  1,
		threshold: 0.7,
		reasoning: "Ответ подготовлен агентом по защите прав потребителей на основе Закона РФ «О защите прав потребителей»",
		rules:     consumerProtectionRules,
	}, deps)
}

// NewLaborLawAgent handles labor queries
func NewLaborLawAgent(deps AgentDeps) *SpecialistAgent {
	return newSpecialistAgent(agentProfile{
		name:      "labor",
		specialty: models.AreaLabor,
		label:     "[ТРУДОВОЕ ПРАВО]",
		priority:  1,
		threshold: 0.8,
		reasoning: "Ответ подготовлен агентом по трудовому праву на основе Трудового кодекса РФ",
		rules:     laborLawRules,
	}, deps)
}

// NewCivilLawAgent handles civil queries
func NewCivilLawAgent(deps AgentDeps) *SpecialistAgent {
	return newSpecialistAgent(agentProfile{
		name:      "civil",
		specialty: models.AreaCivil,
		label:     "[ГРАЖДАНСКОЕ ПРАВО]",
		priority:  2,
		threshold: 0.75,
		reasoning: "Ответ подготовлен агентом по гражданскому праву на основе Гражданского кодекса РФ",
		rules:     civilLawRules,
	}, deps)
}

// DefaultAgents returns the consumer, labor and civil agents in registration order
func DefaultAgents(deps AgentDeps) []Agent {
	return []Agent{
		NewConsumerProtectionAgent(deps),
		NewLaborLawAgent(deps),
		NewCivilLawAgent(deps),
	}
}

func (a *SpecialistAgent) Name() string { return a.profile.name }

func (a *SpecialistAgent) Priority() int { return a.profile.priority }

func (a *SpecialistAgent) CanHandle(lc models.LegalContext) bool {
	return lc.Area == a.profile.specialty
}

// ProcessQuery retrieves sources, generates a tagged answer and derives suggestions
func (a *SpecialistAgent) ProcessQuery(ctx context.Context, query string, lc models.LegalContext) (*models.AgentResponse, error) {
	if a.deps.Generator == nil {
		return nil, &GenerationError{Op: a.profile.name + " consultation", Err: errors.New("text generator not set")}
	}
	pinned := lc.WithArea(a.profile.specialty)

	var results []models.SearchResult
	if a.deps.Retriever != nil {
		var err error
		results, err = a.deps.Retriever.Search(ctx, query, pinned, SearchOptions{
			Limit:           agentSearchLimit,
			Threshold:       a.profile.threshold,
			IncludeMetadata: true,
		})
		if err != nil {
			a.deps.Logger.Error("retrieval failed", zap.Error(err))
			return nil, err
		}
	}

	prompt := a.profile.label + " " + query
	if a.deps.AugmentPrompt && len(results) > 0 {
		prompt += "\n\nКонтекст из законодательства:\n" + formatPassages(results)
	}

	completion, err := complete(ctx, a.deps.Generator, a.deps.Logger, a.profile.name+" consultation", prompt, CompletionOptions{Context: &pinned})
	if err != nil {
		return nil, err
	}

	return &models.AgentResponse{
		Response:    completion.Text,
		Confidence:  clamp01(completion.Confidence),
		Suggestions: applySuggestionRules(a.profile.rules, query),
		Sources:     mergeSources(results, completion.Sources),
		Reasoning:   a.profile.reasoning,
	}, nil
}

// mergeSources lists retrieval sources de-duplicated by ID, followed by generation sources
func mergeSources(results []models.SearchResult, extra []models.LegalSource) []models.LegalSource {
	sources := make([]models.LegalSource, 0, len(results)+len(extra))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if r.Source.ID != "" {
			if seen[r.Source.ID] {
				continue
			}
			seen[r.Source.ID] = true
		}
		sources = append(sources, r.Source)
	}
	return append(sources, extra...)
}

// complete calls the generator and converts any failure into a GenerationError
func complete(ctx context.Context, generator TextGenerator, logger *zap.Logger, op, prompt string, opts CompletionOptions) (*Completion, error) {
	completion, err := generator.Complete(ctx, prompt, opts)
	if err == nil && (completion == nil || strings.TrimSpace(completion.Text) == "") {
		err = ErrEmptyCompletion
	}
	if err != nil {
		logger.Error("generation failed", zap.String("op", op), zap.Error(err))
		return nil, &GenerationError{Op: op, Err: fmt.Errorf("generation service: %w", err)}
	}
	return completion, nil
}
