package services

import (
	"math"
	"sort"

	"skinbet-backend/internal/models"
)

// StakeTickets converts a stake in cents to a ticket count.
func StakeTickets(amount, ticketsPerUnit float64) int64 {
	return int64(math.Floor(amount * ticketsPerUnit))
}

// WinTicket maps the revealed percentage onto the ticket space:
// floor(percentage * totalTickets), clamped into [0, totalTickets-1].
// This is the single place the winning-ticket rule lives.
func WinTicket(percentage float64, totalTickets int64) int64 {
	if totalTickets <= 0 {
		return -1
	}
	ticket := int64(math.Floor(percentage * float64(totalTickets)))
	if ticket < 0 {
		ticket = 0
	}
	if ticket >= totalTickets {
		ticket = totalTickets - 1
	}
	return ticket
}

// FindWinningDeposit binary-searches accepted deposits, ordered by range
// start, for the one whose range contains the ticket. The ranges of the
// accepted deposits must partition [0, totalTickets); any gap, overlap or
// missing coverage is reported as ErrTicketRangeCorruption.
func FindWinningDeposit(deposits []*models.Deposit, ticket int64, totalTickets int64) (*models.Deposit, error) {
	accepted := make([]*models.Deposit, 0, len(deposits))
	for _, d := range deposits {
		if d.JoinStatus == models.JoinStatusAccepted {
			accepted = append(accepted, d)
		}
	}
	if len(accepted) == 0 {
		return nil, ErrTicketRangeCorruption
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].TicketsBegin < accepted[j].TicketsBegin
	})

	if err := checkPartition(accepted, totalTickets); err != nil {
		return nil, err
	}

	i := sort.Search(len(accepted), func(i int) bool {
		return accepted[i].TicketsEnd > ticket
	})
	if i < len(accepted) && accepted[i].Contains(ticket) {
		return accepted[i], nil
	}
	return nil, ErrTicketRangeCorruption
}

// checkPartition verifies the sorted ranges cover [0, totalTickets) with no
// gaps and no overlaps.
func checkPartition(sorted []*models.Deposit, totalTickets int64) error {
	var next int64
	for _, d := range sorted {
		if d.TicketsBegin != next || d.TicketsEnd <= d.TicketsBegin {
			return ErrTicketRangeCorruption
		}
		next = d.TicketsEnd
	}
	if next != totalTickets {
		return ErrTicketRangeCorruption
	}
	return nil
}
