package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// PolicyFile is the on-disk shape of the SLA policy configuration.
type PolicyFile struct {
	Policies []PolicyEntry `yaml:"policies" validate:"required,len=3,dive"`
}

// PolicyEntry is one priority tier. Budgets use Go duration syntax ("90m", "4h").
type PolicyEntry struct {
	Priority   string `yaml:"priority" validate:"required,oneof=HIGH MEDIUM LOW"`
	Response   string `yaml:"response" validate:"required"`
	Resolution string `yaml:"resolution" validate:"required"`
}

var validate = validator.New()

// LoadPolicies reads and validates a YAML policy file.
func LoadPolicies(path string) ([]sla.Policy, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicies([]byte(os.ExpandEnv(string(raw))))
}

// ParsePolicies decodes policy YAML.
func ParsePolicies(raw []byte) ([]sla.Policy, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode policy file: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid policy file: %w", err)
	}

	policies := make([]sla.Policy, 0, len(file.Policies))
	for _, entry := range file.Policies {
		response, err := time.ParseDuration(strings.TrimSpace(entry.Response))
		if err != nil {
			return nil, fmt.Errorf("policy %s response: %w", entry.Priority, err)
		}
		resolution, err := time.ParseDuration(strings.TrimSpace(entry.Resolution))
		if err != nil {
			return nil, fmt.Errorf("policy %s resolution: %w", entry.Priority, err)
		}
		policies = append(policies, sla.Policy{
			Priority:         domain.TicketPriority(entry.Priority),
			ResponseBudget:   response,
			ResolutionBudget: resolution,
		})
	}
	return policies, nil
}

// DefaultPolicies converts env budget defaults into policies.
func (b BudgetDefaults) DefaultPolicies() []sla.Policy {
	return []sla.Policy{
		{Priority: domain.TicketPriorityHigh, ResponseBudget: minutes(b.HighResponseMinutes), ResolutionBudget: minutes(b.HighResolutionMinutes)},
		{Priority: domain.TicketPriorityMedium, ResponseBudget: minutes(b.MediumResponseMinutes), ResolutionBudget: minutes(b.MediumResolutionMinutes)},
		{Priority: domain.TicketPriorityLow, ResponseBudget: minutes(b.LowResponseMinutes), ResolutionBudget: minutes(b.LowResolutionMinutes)},
	}
}

// BuildRegistry resolves the policy snapshot: the policy file when set, env defaults otherwise.
func (s SLAConfig) BuildRegistry() (*sla.Registry, error) {
	policies := s.DefaultBudgets.DefaultPolicies()
	if s.PolicyFile != "" {
		loaded, err := LoadPolicies(s.PolicyFile)
		if err != nil {
			return nil, err
		}
		policies = loaded
	}
	return sla.NewRegistry(policies...)
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
