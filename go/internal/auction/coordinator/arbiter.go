package coordinator

import (
	"fmt"

	"github.com/mcdev12/auctionroom/go/internal/auction/room"
)

// validateBid checks a bid against the standing price and the bidder's budget.
// It must only run on the coordinator goroutine so that no two bids are judged
// against the same price.
func validateBid(price int, bidder room.Participant, amount int) error {
	if amount <= price {
		return fmt.Errorf("bid %d at price %d: %w", amount, price, ErrStaleBid)
	}
	if amount > bidder.Budget {
		return fmt.Errorf("bid %d with budget %d: %w", amount, bidder.Budget, ErrInsufficientBudget)
	}
	return nil
}
