package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChallengesIssued counts issued authentication challenges
	ChallengesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletauth_challenges_issued_total",
			Help: "Total number of authentication challenges issued",
		},
	)

	// LoginAttempts counts verification attempts by outcome
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletauth_login_attempts_total",
			Help: "Total number of login verification attempts",
		},
		[]string{"outcome"},
	)

	// TokenValidations counts middleware token checks by outcome
	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletauth_token_validations_total",
			Help: "Total number of bearer token validations",
		},
		[]string{"outcome"},
	)
)
