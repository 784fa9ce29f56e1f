package trades

import (
	"errors"

	"github.com/monsignal/signal-engine/internal/models"
)

var ErrNotFound = errors.New("trade not found")

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlEnvelope struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type tradesResponse struct {
	Data struct {
		Trade []models.TradeEvent `json:"Trade"`
	} `json:"data"`
}

type countResponse struct {
	Data struct {
		TradeAggregate struct {
			Aggregate struct {
				Count int64 `json:"count"`
			} `json:"aggregate"`
		} `json:"Trade_aggregate"`
	} `json:"data"`
}
