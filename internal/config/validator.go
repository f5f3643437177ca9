package config

import (
	"fmt"
	"strings"
)

var validVerificationModes = map[string]bool{
	"RELAXED": true,
	"STRICT":  true,
	"CREATE":  true,
	"":        true, // defaulted to RELAXED at the verifier boundary
}

// ValidateStatic checks everything that can be verified without talking to
// any external system.
func ValidateStatic(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}

	if len(cfg.Queue.Brokers) == 0 {
		errs = append(errs, "queue.brokers must not be empty")
	}
	if cfg.Queue.BackendSubmissionTopic == "" {
		errs = append(errs, "queue.backend_submission_topic is required")
	}
	if cfg.Queue.GatewayDeliveryTopic == "" {
		errs = append(errs, "queue.gateway_delivery_topic is required")
	}
	if cfg.Queue.GatewayLinkTopic == "" {
		errs = append(errs, "queue.gateway_link_topic is required")
	}
	if cfg.Queue.BackendLinkTopic == "" {
		errs = append(errs, "queue.backend_link_topic is required")
	}

	if cfg.DefaultDomain == "" {
		errs = append(errs, "default_domain is required")
	} else if _, ok := cfg.Domains[cfg.DefaultDomain]; !ok {
		errs = append(errs, fmt.Sprintf("default_domain %q has no domains entry", cfg.DefaultDomain))
	}

	for id, domain := range cfg.Domains {
		errs = append(errs, validateDomain(id, domain)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateDomain(id string, domain DomainConfig) []string {
	var errs []string

	if domain.EbmsIDGeneratorEnabled && domain.EbmsIDSuffix == "" {
		errs = append(errs, fmt.Sprintf("domains.%s: ebms_id_suffix is required when ebms_id_generator_enabled", id))
	}
	if domain.DefaultGatewayName == "" {
		errs = append(errs, fmt.Sprintf("domains.%s: default_gateway_name is required", id))
	}
	if !domain.BackendRoutingEnabled && domain.DefaultBackendName == "" {
		errs = append(errs, fmt.Sprintf("domains.%s: default_backend_name is required when backend routing is disabled", id))
	}

	if !validVerificationModes[strings.ToUpper(domain.OutgoingPModeVerificationMode)] {
		errs = append(errs, fmt.Sprintf("domains.%s: unknown outgoing_pmode_verification_mode %q", id, domain.OutgoingPModeVerificationMode))
	}
	if !validVerificationModes[strings.ToUpper(domain.IncomingPModeVerificationMode)] {
		errs = append(errs, fmt.Sprintf("domains.%s: unknown incoming_pmode_verification_mode %q", id, domain.IncomingPModeVerificationMode))
	}

	seen := make(map[string]bool, len(domain.BackendRoutingRules))
	for i, rule := range domain.BackendRoutingRules {
		if rule.RuleID == "" {
			errs = append(errs, fmt.Sprintf("domains.%s: backend_routing_rules[%d] needs a rule_id", id, i))
			continue
		}
		if seen[rule.RuleID] {
			errs = append(errs, fmt.Sprintf("domains.%s: duplicate routing rule id %q", id, rule.RuleID))
		}
		seen[rule.RuleID] = true
		if rule.LinkName == "" {
			errs = append(errs, fmt.Sprintf("domains.%s: routing rule %q needs a link_name", id, rule.RuleID))
		}
		if rule.Expression == "" {
			errs = append(errs, fmt.Sprintf("domains.%s: routing rule %q needs an expression", id, rule.RuleID))
		}
	}

	return errs
}
