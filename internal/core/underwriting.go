package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Severity is the ordered outcome of a single underwriting rule.
type Severity int

const (
	SeverityPass Severity = iota
	SeverityWarning
	SeverityReviewRequired
	SeverityBlocking
)

func (s Severity) String() string {
	switch s {
	case SeverityPass:
		return "PASS"
	case SeverityWarning:
		return "WARNING"
	case SeverityReviewRequired:
		return "REVIEW_REQUIRED"
	case SeverityBlocking:
		return "BLOCKING"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UWDecision is one of the three terminal underwriting outcomes.
type UWDecision string

const (
	UWDecisionApproved UWDecision = "APPROVED"
	UWDecisionReview   UWDecision = "REQUIRES_REVIEW"
	UWDecisionDeclined UWDecision = "DECLINED"
)

// RuleResult is the evaluation outcome of one rule.
type RuleResult struct {
	RuleName string   `json:"rule_name"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message,omitempty"`
}

// UnderwritingResult aggregates all rule results into one decision.
type UnderwritingResult struct {
	Decision    UWDecision   `json:"decision"`
	RuleResults []RuleResult `json:"rule_results"`
	Reason      string       `json:"reason,omitempty"`
}

// Approved reports whether the request may proceed to pricing.
func (r UnderwritingResult) Approved() bool { return r.Decision == UWDecisionApproved }

// Rule is one independent underwriting check. Rules must not depend on each
// other's results; the engine owns all aggregation.
type Rule interface {
	Name() string
	Priority() int
	Evaluate(ctx context.Context, req QuoteRequest, asOf time.Time) (RuleResult, error)
}

// RuleEngine evaluates every rule in priority order and aggregates the worst
// severity into a decision. All rules always run; ordering never changes the
// outcome.
type RuleEngine struct {
	rules []Rule
	log   *slog.Logger
}

// NewRuleEngine builds the engine with the standard rule set.
func NewRuleEngine(ref ReferenceDataPort, log *slog.Logger) *RuleEngine {
	return NewRuleEngineWith(log,
		NewApplicantAgeRule(ref),
		NewCoverageAmountRule(ref),
		NewExtremeSportAgeRule(ref),
		NewTripDurationRule(ref),
	)
}

// NewRuleEngineWith builds an engine over an explicit rule set; used by tests
// to inject single rules.
func NewRuleEngineWith(log *slog.Logger, rules ...Rule) *RuleEngine {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	return &RuleEngine{rules: sorted, log: log}
}

// Underwrite runs every rule against the request. A rule that returns an
// error or panics is converted into a synthetic BLOCKING result: a broken
// rule never crashes the request, but always fails closed.
func (e *RuleEngine) Underwrite(ctx context.Context, req QuoteRequest, asOf time.Time) UnderwritingResult {
	results := make([]RuleResult, 0, len(e.rules))
	for _, rule := range e.rules {
		results = append(results, e.evaluateSafe(ctx, rule, req, asOf))
	}
	return aggregate(results)
}

func (e *RuleEngine) evaluateSafe(ctx context.Context, rule Rule, req QuoteRequest, asOf time.Time) (result RuleResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("underwriting rule panicked", "rule", rule.Name(), "panic", r)
			result = RuleResult{
				RuleName: rule.Name(),
				Severity: SeverityBlocking,
				Message:  fmt.Sprintf("rule %s failed: %v", rule.Name(), r),
			}
		}
	}()

	res, err := rule.Evaluate(ctx, req, asOf)
	if err != nil {
		e.log.Error("underwriting rule failed", "rule", rule.Name(), "err", err)
		return RuleResult{
			RuleName: rule.Name(),
			Severity: SeverityBlocking,
			Message:  fmt.Sprintf("rule %s failed: %v", rule.Name(), err),
		}
	}
	return res
}

func aggregate(results []RuleResult) UnderwritingResult {
	worst := SeverityPass
	for _, r := range results {
		if r.Severity > worst {
			worst = r.Severity
		}
	}

	out := UnderwritingResult{RuleResults: results}
	switch worst {
	case SeverityBlocking:
		out.Decision = UWDecisionDeclined
		out.Reason = joinMessages(results, SeverityBlocking)
	case SeverityReviewRequired:
		out.Decision = UWDecisionReview
		out.Reason = joinMessages(results, SeverityReviewRequired)
	default:
		// Warnings are recorded but never change the decision.
		out.Decision = UWDecisionApproved
	}
	return out
}

func joinMessages(results []RuleResult, severity Severity) string {
	var msgs []string
	for _, r := range results {
		if r.Severity == severity && r.Message != "" {
			msgs = append(msgs, r.Message)
		}
	}
	return strings.Join(msgs, "; ")
}
