package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lawerapp-backend/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	fallbackAgentName = "fallback"
	fallbackReasoning = "Общая юридическая консультация: специализированный агент для данной отрасли права не найден"
)

// Coordinator routes consultations to the best specialist agent
type Coordinator struct {
	registry  *AgentRegistry
	generator TextGenerator
	analyzer  QueryAnalyzer
	logger    *zap.Logger
}

// CoordinatorOption is a functional option for Coordinator
type CoordinatorOption func(*Coordinator)

// CoordinatorWithAnalyzer enables AnalyzeQuery
func CoordinatorWithAnalyzer(analyzer QueryAnalyzer) CoordinatorOption {
	return func(c *Coordinator) {
		c.analyzer = analyzer
	}
}

// CoordinatorWithLogger sets the logger
func CoordinatorWithLogger(logger *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a coordinator over registry. generator serves the fallback path.
func NewCoordinator(registry *AgentRegistry, generator TextGenerator, opts ...CoordinatorOption) *Coordinator {
	if registry == nil {
		registry = &AgentRegistry{}
	}
	c := &Coordinator{
		registry:  registry,
		generator: generator,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelectAgent exposes the routing policy without running a consultation
func (c *Coordinator) SelectAgent(lc models.LegalContext) (Agent, bool) {
	return c.registry.Select(lc)
}

// Route runs the query through the selected agent, or through the fallback path
// when no agent accepts the context. Every failure is an *OrchestrationError.
func (c *Coordinator) Route(ctx context.Context, query string, lc models.LegalContext) (*models.AgentResponse, error) {
	ctx, span := tracer.Start(ctx, "coordinator.route")
	defer span.End()
	span.SetAttributes(attribute.String("legal_area", string(lc.Area)))

	agent, ok := c.registry.Select(lc)
	if !ok {
		span.SetAttributes(attribute.String("agent", fallbackAgentName))
		resp, err := c.fallback(ctx, query, lc)
		if err != nil {
			err = &OrchestrationError{Agent: fallbackAgentName, Err: &RoutingError{Err: err}}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		return resp, nil
	}

	span.SetAttributes(attribute.String("agent", agent.Name()))
	c.logger.Debug("routing consultation", zap.String("agent", agent.Name()), zap.String("legal_area", string(lc.Area)))

	resp, err := agent.ProcessQuery(ctx, query, lc)
	if err == nil && resp == nil {
		err = errors.New("agent returned no response")
	}
	if err != nil {
		c.logger.Error("consultation failed", zap.String("agent", agent.Name()), zap.Error(err))
		err = &OrchestrationError{Agent: agent.Name(), Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp.Confidence = clamp01(resp.Confidence)
	if resp.Suggestions == nil {
		resp.Suggestions = []models.AISuggestion{}
	}
	if resp.Sources == nil {
		resp.Sources = []models.LegalSource{}
	}
	return resp, nil
}

func (c *Coordinator) fallback(ctx context.Context, query string, lc models.LegalContext) (*models.AgentResponse, error) {
	if c.generator == nil {
		return nil, errors.New("no agent accepts the context and no fallback generator is set")
	}
	c.logger.Info("no specialist agent for context, using fallback", zap.String("legal_area", string(lc.Area)))

	completion, err := complete(ctx, c.generator, c.logger, "fallback consultation", query, CompletionOptions{Context: &lc})
	if err != nil {
		return nil, err
	}

	sources := completion.Sources
	if sources == nil {
		sources = []models.LegalSource{}
	}
	return &models.AgentResponse{
		Response:    completion.Text,
		Confidence:  clamp01(completion.Confidence),
		Suggestions: []models.AISuggestion{},
		Sources:     sources,
		Reasoning:   fallbackReasoning,
	}, nil
}

// HealthReport is the per-agent liveness view
type HealthReport struct {
	Agents  map[string]bool `json:"agents"`
	Healthy bool            `json:"healthy"`
}

// HealthCheck probes each agent's capability predicate against every legal area.
// It never calls external services.
func (c *Coordinator) HealthCheck() HealthReport {
	report := HealthReport{Agents: map[string]bool{}, Healthy: true}
	for _, agent := range c.registry.Agents() {
		healthy := probeAgent(agent)
		report.Agents[agent.Name()] = healthy
		report.Healthy = report.Healthy && healthy
	}
	return report
}

func probeAgent(agent Agent) (healthy bool) {
	defer func() {
		if recover() != nil {
			healthy = false
		}
	}()
	for _, area := range models.LegalAreas() {
		probe := models.LegalContext{
			Area:         area,
			Jurisdiction: models.JurisdictionRussia,
			Urgency:      models.UrgencyLow,
		}
		if agent.CanHandle(probe) {
			return true
		}
	}
	return false
}

// QueryAnalysis is the detected legal area and difficulty of a free-text question
type QueryAnalysis struct {
	Area       models.LegalArea    `json:"area"`
	Complexity *ComplexityEstimate `json:"complexity,omitempty"`
}

// AnalyzeQuery classifies a query into a legal area and estimates its complexity.
// An unrecognized label degrades to civil; a failed complexity estimate is omitted.
func (c *Coordinator) AnalyzeQuery(ctx context.Context, query string) (*QueryAnalysis, error) {
	if c.analyzer == nil {
		return nil, &GenerationError{Op: "analyze query", Err: errors.New("query analyzer not set")}
	}

	areas := models.LegalAreas()
	categories := make([]string, len(areas))
	for i, area := range areas {
		categories[i] = string(area)
	}

	label, err := c.analyzer.Classify(ctx, query, categories)
	if err != nil {
		c.logger.Error("query classification failed", zap.Error(err))
		return nil, &GenerationError{Op: "analyze query", Err: fmt.Errorf("classify: %w", err)}
	}

	analysis := &QueryAnalysis{Area: models.LegalArea(strings.ToLower(strings.TrimSpace(label)))}
	if !analysis.Area.Valid() {
		c.logger.Warn("unknown legal area label, defaulting to civil", zap.String("label", label))
		analysis.Area = models.AreaCivil
	}

	estimate, err := c.analyzer.Complexity(ctx, query)
	if err != nil {
		c.logger.Warn("complexity estimate failed", zap.Error(err))
	} else {
		analysis.Complexity = estimate
	}
	return analysis, nil
}
