package api

import (
	"context"
	"time"
)

const (
	freeRequestsPerWeek = 3
	ticketBaseCost      = 100
	maxTicketCost       = 1 << 20
)

// TicketCost prices a new request given how many the user already made
// this week. The first three are free; each one after doubles in price
// starting from the base cost.
func TicketCost(priorThisWeek int) int {
	if priorThisWeek < freeRequestsPerWeek {
		return 0
	}
	cost := ticketBaseCost
	for i := freeRequestsPerWeek; i < priorThisWeek; i++ {
		cost *= 2
		if cost >= maxTicketCost {
			return maxTicketCost
		}
	}
	return cost
}

func (s *Server) ticketCost(ctx context.Context, userID string) (int, error) {
	since := s.clock.Now().Add(-7 * 24 * time.Hour)
	prior, err := s.store.CountUserRequestsSince(ctx, userID, since)
	if err != nil {
		return 0, err
	}
	return TicketCost(prior), nil
}
