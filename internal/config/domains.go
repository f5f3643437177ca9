package config

import (
	"fmt"

	"bifrost/internal/domain"
)

// DomainRegistry resolves per-business-domain configuration. The default
// domain is decided once here, at the call boundary, so no component below
// this point ever consults global state.
type DomainRegistry struct {
	defaultID domain.BusinessDomainID
	domains   map[domain.BusinessDomainID]DomainConfig
}

func NewDomainRegistry(cfg *Config) (*DomainRegistry, error) {
	if cfg.DefaultDomain == "" {
		return nil, fmt.Errorf("default_domain is not configured")
	}

	domains := make(map[domain.BusinessDomainID]DomainConfig, len(cfg.Domains))
	for id, d := range cfg.Domains {
		domains[domain.BusinessDomainID(id)] = d
	}

	defaultID := domain.BusinessDomainID(cfg.DefaultDomain)
	if _, ok := domains[defaultID]; !ok {
		return nil, fmt.Errorf("default_domain %q has no configuration", cfg.DefaultDomain)
	}

	return &DomainRegistry{defaultID: defaultID, domains: domains}, nil
}

// DefaultDomainID returns the lane used when a message carries none.
func (r *DomainRegistry) DefaultDomainID() domain.BusinessDomainID {
	return r.defaultID
}

// Get returns the configuration of the given lane.
func (r *DomainRegistry) Get(id domain.BusinessDomainID) (DomainConfig, error) {
	d, ok := r.domains[id]
	if !ok {
		return DomainConfig{}, fmt.Errorf("unknown business domain %q", id)
	}
	return d, nil
}

// Resolve returns the lane for the given id, falling back to the default
// lane when the id is empty.
func (r *DomainRegistry) Resolve(id domain.BusinessDomainID) (domain.BusinessDomainID, DomainConfig, error) {
	if id == "" {
		id = r.defaultID
	}
	d, err := r.Get(id)
	return id, d, err
}

// DomainIDs lists all configured lanes.
func (r *DomainRegistry) DomainIDs() []domain.BusinessDomainID {
	ids := make([]domain.BusinessDomainID, 0, len(r.domains))
	for id := range r.domains {
		ids = append(ids, id)
	}
	return ids
}
