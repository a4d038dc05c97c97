package anilist

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"github.com/edumarques81/animekun-backend/internal/metrics"
)

type roundTripResult struct {
	resp *Response
	body []byte
}

// breaker guards the network round trip. Only failures that say something
// about the remote side count against it.
type breaker struct {
	cb *gobreaker.CircuitBreaker[roundTripResult]
}

func newBreaker(name string, consecutiveFailures uint32, timeout time.Duration) *breaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[roundTripResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: countsAsSuccess,
	})
	return &breaker{cb: cb}
}

func (b *breaker) execute(fn func() (*Response, []byte, error)) (*Response, []byte, error) {
	res, err := b.cb.Execute(func() (roundTripResult, error) {
		resp, body, err := fn()
		return roundTripResult{resp: resp, body: body}, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, nil, &QueryError{
				Kind:    KindServer,
				Message: MsgUnavailable,
				Detail:  err.Error(),
				Err:     err,
			}
		}
		return nil, nil, err
	}
	return res.resp, res.body, nil
}

// countsAsSuccess keeps caller mistakes and cancellations from tripping the
// breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var qe *QueryError
	if !errors.As(err, &qe) {
		return true
	}
	switch qe.Kind {
	case KindTransport, KindRateLimited, KindServer:
		return false
	default:
		return true
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
