package routing

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	celgo "github.com/google/cel-go/cel"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/pkg/cel"
	"bifrost/pkg/metrics"
)

type compiledRule struct {
	Rule
	program celgo.Program
}

// RuleStore holds the compiled routing-rule snapshot per business domain.
// Rules come from two sources: the static lane configuration and the
// runtime-managed routing_rules table. The snapshot is replaced atomically
// on reload.
type RuleStore struct {
	repo      Repository
	registry  *config.DomainRegistry
	evaluator *cel.Evaluator
	reloadCfg config.RoutingConfig
	logger    logger.Logger

	mu    sync.RWMutex
	rules map[domain.BusinessDomainID][]compiledRule
}

func NewRuleStore(repo Repository, registry *config.DomainRegistry, cfg config.RoutingConfig, log logger.Logger) (*RuleStore, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	return &RuleStore{
		repo:      repo,
		registry:  registry,
		evaluator: evaluator,
		reloadCfg: cfg,
		logger:    log,
		rules:     make(map[domain.BusinessDomainID][]compiledRule),
	}, nil
}

// Evaluator exposes the shared CEL environment for expression validation.
func (s *RuleStore) Evaluator() *cel.Evaluator {
	return s.evaluator
}

func (s *RuleStore) Reload(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	snapshot := make(map[domain.BusinessDomainID][]compiledRule)
	total := 0

	for _, domainID := range s.registry.DomainIDs() {
		domainCfg, err := s.registry.Get(domainID)
		if err != nil {
			return err
		}
		for _, seed := range domainCfg.BackendRoutingRules {
			rule := Rule{
				ID:         seed.RuleID,
				DomainID:   string(domainID),
				LinkName:   seed.LinkName,
				Expression: seed.Expression,
				Priority:   seed.Priority,
				Enabled:    true,
			}
			compiled, err := s.compile(rule)
			if err != nil {
				return fmt.Errorf("configured routing rule %s: %w", rule.ID, err)
			}
			snapshot[domainID] = append(snapshot[domainID], compiled)
			total++
		}
	}

	if s.repo != nil {
		stored, err := s.repo.GetActiveRules(ctx)
		if err != nil {
			return err
		}
		for _, rule := range stored {
			compiled, err := s.compile(rule)
			if err != nil {
				// A bad stored rule must not take routing down; skip it.
				s.logger.ErrorwCtx(ctx, "Skipping routing rule with invalid expression",
					"rule_id", rule.ID,
					"error", err,
				)
				continue
			}
			domainID := domain.BusinessDomainID(rule.DomainID)
			snapshot[domainID] = append(snapshot[domainID], compiled)
			total++
		}
	}

	// Higher priority first; GetActiveRules and config declaration order
	// provide the stable tie-break.
	for domainID := range snapshot {
		rules := snapshot[domainID]
		sort.SliceStable(rules, func(i, j int) bool {
			return rules[i].Priority > rules[j].Priority
		})
		snapshot[domainID] = rules
	}

	s.mu.Lock()
	s.rules = snapshot
	s.mu.Unlock()

	metrics.SetRoutingRulesActive(total)
	s.logger.InfowCtx(ctx, "Successfully reloaded routing rules",
		"rules_count", total,
	)
	return nil
}

func (s *RuleStore) compile(rule Rule) (compiledRule, error) {
	program, err := s.evaluator.CompileMatchClause(rule.Expression)
	if err != nil {
		return compiledRule{}, err
	}
	return compiledRule{Rule: rule, program: program}, nil
}

func (s *RuleStore) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.reloadCfg.Reload.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.reloadCfg.Reload.JitterMaxMilliseconds)) * time.Millisecond
	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RulesFor returns the compiled rules of one lane, highest priority first.
func (s *RuleStore) RulesFor(domainID domain.BusinessDomainID) []compiledRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]compiledRule, len(s.rules[domainID]))
	copy(rules, s.rules[domainID])
	return rules
}

func (s *RuleStore) StartReloader(ctx context.Context) error {
	interval := time.Duration(s.reloadCfg.Reload.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.Reload(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload routing rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload routing rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
