package calculator

import (
	"fmt"
	"math"
	"sort"
)

// OrderForBalance is an order with the minimal information needed for balance calculations.
// The creator paid the full price; every participant (creator included) owes an equal share.
type OrderForBalance struct {
	CreatorMemberID string
	Price           float64
	Participants    []string
}

// MemberBalance is the balance of one group member across all orders.
type MemberBalance struct {
	MemberID   string  `json:"member_id"`
	NetBalance float64 `json:"net_balance"` // Positive = owed money, negative = owes money
	TotalPaid  float64 `json:"total_paid"`
	TotalOwed  float64 `json:"total_owed"`
}

// DebtEdge is a simplified debt from one member to another.
type DebtEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// GroupBalances aggregates who paid what and who owes what across orders.
//
// Algorithm:
//   - For each order: creator contributed +price, each participant owes their share
//   - Aggregate: net_balance = total_paid - total_owed
//   - Debts: greedy matching of the largest debtor with the largest creditor
//
// Results are sorted by member id so responses are stable.
func GroupBalances(orders []OrderForBalance) ([]MemberBalance, []DebtEdge, error) {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		b, ok := balances[id]
		if !ok {
			b = &MemberBalance{MemberID: id}
			balances[id] = b
		}
		return b
	}

	for _, order := range orders {
		participants := order.Participants
		if len(participants) == 0 {
			participants = []string{order.CreatorMemberID}
		}

		shares, err := SplitEvenly(order.Price, participants)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to split order: %w", err)
		}

		get(order.CreatorMemberID).TotalPaid += order.Price
		for member, share := range shares {
			get(member).TotalOwed += share
		}
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.TotalPaid = roundCents(b.TotalPaid)
		b.TotalOwed = roundCents(b.TotalOwed)
		b.NetBalance = roundCents(b.TotalPaid - b.TotalOwed)
		memberBalances = append(memberBalances, *b)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].MemberID < memberBalances[j].MemberID
	})

	return memberBalances, simplifyDebts(memberBalances), nil
}

func simplifyDebts(balances []MemberBalance) []DebtEdge {
	var creditors, debtors []MemberBalance
	for _, b := range balances {
		if b.NetBalance > 0 {
			creditors = append(creditors, b)
		} else if b.NetBalance < 0 {
			debtors = append(debtors, b)
		}
	}

	// Largest amounts first, ties broken by id.
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].NetBalance != creditors[j].NetBalance {
			return creditors[i].NetBalance > creditors[j].NetBalance
		}
		return creditors[i].MemberID < creditors[j].MemberID
	})
	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].NetBalance != debtors[j].NetBalance {
			return debtors[i].NetBalance < debtors[j].NetBalance
		}
		return debtors[i].MemberID < debtors[j].MemberID
	})

	owes := make([]float64, len(debtors))
	for i, d := range debtors {
		owes[i] = -d.NetBalance
	}
	owed := make([]float64, len(creditors))
	for j, c := range creditors {
		owed[j] = c.NetBalance
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := math.Min(owes[i], owed[j])
		if amount >= 0.01 { // Avoid floating point noise
			edges = append(edges, DebtEdge{
				From:   debtors[i].MemberID,
				To:     creditors[j].MemberID,
				Amount: roundCents(amount),
			})
		}

		owes[i] -= amount
		owed[j] -= amount

		if owes[i] < 0.01 {
			i++
		}
		if owed[j] < 0.01 {
			j++
		}
	}

	return edges
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
