// Package observability holds the Prometheus metrics emitted by the gateway
// and the client session manager.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GuardDecisionsTotal counts guard outcomes (allowed, unauthorized, forbidden).
	GuardDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_auth_guard_decisions_total",
			Help: "Guard decisions on protected requests",
		},
		[]string{"outcome", "reason"},
	)

	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_auth_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"outcome"},
	)

	// TokensIssuedTotal counts issued tokens by kind (login, refresh).
	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_auth_tokens_issued_total",
			Help: "Issued access tokens",
		},
		[]string{"kind"},
	)

	// ProfileFetchesTotal counts client side profile fetches by outcome.
	ProfileFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_auth_profile_fetches_total",
			Help: "Client profile fetches",
		},
		[]string{"outcome"},
	)
)

// Collectors returns every collector defined by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		GuardDecisionsTotal,
		LoginAttemptsTotal,
		TokensIssuedTotal,
		ProfileFetchesTotal,
	}
}

// Register adds the collectors to reg, ignoring already registered ones.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
