package domain

// NetRevenue is the creator's share of one paid order after the platform's
// fixed service charge. It never goes below zero for tiny orders.
func NetRevenue(totalAmount, serviceCharge int64) int64 {
	net := totalAmount - serviceCharge
	if net < 0 {
		return 0
	}
	return net
}
