package domain

import "errors"

// Business-rule errors. Every mutating engine operation fails with exactly one
// of these (or an infrastructure error wrapped by the layer that hit it) and
// leaves no state change behind.
var (
	// Input validation.
	ErrAmountMustBePositive = errors.New("amount must be greater than zero")
	ErrZeroAddress          = errors.New("recipient is the zero address")
	ErrUnknownCurrency      = errors.New("unknown currency")

	// Authorization.
	ErrAddressNotInWhitelist = errors.New("asset custodian is not whitelisted")
	ErrNotSellerOrAdmin      = errors.New("only the seller or an admin can remove the item")
	ErrNotBidderOrSeller     = errors.New("only the highest bidder or the seller can end the auction")
	ErrAdminRequired         = errors.New("admin role required")

	// Not found.
	ErrMarketItemNotFound  = errors.New("market item not found")
	ErrAuctionItemNotFound = errors.New("auction item not found")
	ErrBidderNotFound      = errors.New("bidder has no revertable bid")

	// State conflicts.
	ErrSoldOut                   = errors.New("item is already sold out")
	ErrSelfPurchase              = errors.New("seller cannot buy or bid on their own item")
	ErrAlreadyHighestBidder      = errors.New("caller is already the highest bidder")
	ErrBidTooLow                 = errors.New("bid does not exceed the highest price")
	ErrAuctionOver               = errors.New("auction is over")
	ErrAuctionNotOver            = errors.New("auction is not over yet")
	ErrNoBids                    = errors.New("no one has bid on the auction")
	ErrHasHighestBidder          = errors.New("cannot remove an auction with a highest bidder")
	ErrHighestBidderCannotRevert = errors.New("the highest bidder cannot revert their funds")

	// Currency mismatch.
	ErrNativePaymentOnly = errors.New("item only accepts native payment")
	ErrTokenPaymentOnly  = errors.New("item only accepts token payment")

	// Funds.
	ErrNotEnoughFunds = errors.New("not enough withdrawable funds")

	// Pagination.
	ErrOutOfBounds = errors.New("list cursor is out of bounds")
)

// Infrastructure errors shared by cache and lock implementations.
var (
	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock already held")
)
