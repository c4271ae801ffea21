package model

import "time"

// PaymentQuery narrows a payout-table read. The zero value reads everything.
type PaymentQuery struct {
	// Wallet restricts to payments whose address list contains this wallet.
	Wallet string
	// Since restricts to payments at or after this instant.
	Since time.Time
	// Limit caps the row count, 0 means unbounded.
	Limit int
	// GroupByTransaction collapses batched rows sharing a transaction hash
	// into one row with the summed amount and latest timestamp. Only
	// meaningful for KAS payments; grouped rows carry no wallet list.
	GroupByTransaction bool
}
