package pmode

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/pkg/circuitbreaker"
	"bifrost/pkg/errors"
)

// CircuitBreakerCatalog shields the catalog lookups behind a circuit breaker
// so a struggling database fails fast instead of stalling every message.
type CircuitBreakerCatalog struct {
	catalog Catalog
	cb      *circuitbreaker.Wrapper
}

func NewCircuitBreakerCatalog(catalog Catalog, cfg config.CircuitBreakerConfig) *CircuitBreakerCatalog {
	if !cfg.Enabled {
		return &CircuitBreakerCatalog{catalog: catalog}
	}

	cbConfig := circuitbreaker.DefaultConfig("pmode-catalog")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerCatalog{
		catalog: catalog,
		cb:      circuitbreaker.NewWrapper(cbConfig),
	}
}

// lookupResult carries an expected lookup miss through the breaker as a
// success. A catalog miss is an answer, not an infrastructure failure.
type lookupResult struct {
	value interface{}
	err   error
}

func (c *CircuitBreakerCatalog) execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if c.cb == nil {
		return fn()
	}

	result, err := c.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		value, lookupErr := fn()
		if lookupErr != nil && (errors.IsNotFound(lookupErr) || errors.IsValidation(lookupErr)) {
			return lookupResult{value: value, err: lookupErr}, nil
		}
		return lookupResult{value: value}, lookupErr
	})

	c.cb.RecordRequest(err == nil)

	if err != nil {
		if c.cb.IsOpen() {
			return nil, fmt.Errorf("circuit breaker is open for pmode-catalog: %w", err)
		}
		return nil, err
	}

	lr, ok := result.(lookupResult)
	if !ok {
		return nil, fmt.Errorf("catalog returned invalid result type")
	}
	return lr.value, lr.err
}

func (c *CircuitBreakerCatalog) FindAction(ctx context.Context, domainID domain.BusinessDomainID, action string) (string, error) {
	result, err := c.execute(ctx, func() (interface{}, error) {
		return c.catalog.FindAction(ctx, domainID, action)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *CircuitBreakerCatalog) FindService(ctx context.Context, domainID domain.BusinessDomainID, name string) (*domain.Service, error) {
	result, err := c.execute(ctx, func() (interface{}, error) {
		return c.catalog.FindService(ctx, domainID, name)
	})
	if err != nil {
		return nil, err
	}
	svc, _ := result.(*domain.Service)
	return svc, nil
}

func (c *CircuitBreakerCatalog) FindParty(ctx context.Context, domainID domain.BusinessDomainID, partyID, idType string) (*domain.Party, error) {
	result, err := c.execute(ctx, func() (interface{}, error) {
		return c.catalog.FindParty(ctx, domainID, partyID, idType)
	})
	if err != nil {
		return nil, err
	}
	party, _ := result.(*domain.Party)
	return party, nil
}

func (c *CircuitBreakerCatalog) State() string {
	if c.cb == nil {
		return "disabled"
	}
	return c.cb.State().String()
}
