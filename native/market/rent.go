package market

import "marketplace/crypto"

// RentSchedule is the reserve schedule for persisted accounts: the minimum
// balance an account must hold to stay resident, refunded to its payer when
// the account closes. Table is the canonical identity operations must
// reference.
type RentSchedule struct {
	Table       [32]byte
	BaseReserve uint64
	PerByteRate uint64
}

// MinimumBalance returns the reserve required for an account with the given
// record size.
func (r RentSchedule) MinimumBalance(size int) uint64 {
	return r.BaseReserve + r.PerByteRate*uint64(size)
}

// DefaultRentSchedule returns the schedule used by a standard deployment.
func DefaultRentSchedule() RentSchedule {
	return RentSchedule{
		Table:       crypto.ServiceIdentity("rent-table"),
		BaseReserve: 128,
		PerByteRate: 10,
	}
}
