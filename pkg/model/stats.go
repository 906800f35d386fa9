package model

// DashboardStats summarizes a user's bookings for the dashboard view.
type DashboardStats struct {
	PendingReservations  int `json:"pendingReservations"`
	ApprovedReservations int `json:"approvedReservations"`
	PastBookings         int `json:"pastBookings"`
}

// StatsFromBookings derives dashboard counts from a booking list. The
// legacy status tokens "approved" and "rejected" still appear in old
// server data and are folded into the matching buckets.
func StatsFromBookings(bookings []*Booking) DashboardStats {
	var stats DashboardStats
	for _, b := range bookings {
		switch b.Status {
		case StatusPending:
			stats.PendingReservations++
		case StatusConfirmed, "approved":
			stats.ApprovedReservations++
		case StatusCompleted, StatusCancelled, "rejected":
			stats.PastBookings++
		}
	}
	return stats
}
