package console

import (
	"math"
	"time"

	recordsx "github.com/tanpawarit/clinic-admin-console/agent/records"
)

type StatusCount struct {
	Status recordsx.AppointmentStatus `json:"status"`
	Count  int                        `json:"count"`
}

// Stats backs the dashboard cards and the appointment status chart.
type Stats struct {
	TotalPatients  int           `json:"totalPatients"`
	UpcomingVisits int           `json:"upcomingVisits"`
	TotalRevenue   float64       `json:"totalRevenue"`
	PendingRevenue float64       `json:"pendingRevenue"`
	StatusCounts   []StatusCount `json:"statusCounts"`
}

// ComputeStats counts an appointment as upcoming when its date is today or
// later. Dates that do not parse as YYYY-MM-DD are not counted.
func ComputeStats(s recordsx.Snapshot, now time.Time) Stats {
	out := Stats{TotalPatients: len(s.Patients)}

	today := now.UTC().Truncate(24 * time.Hour)
	for _, a := range s.Appointments {
		d, err := time.Parse("2006-01-02", a.Date)
		if err != nil {
			continue
		}
		if !d.Before(today) {
			out.UpcomingVisits++
		}
	}

	for _, inv := range s.Invoices {
		out.TotalRevenue += inv.Amount
		if inv.Status == recordsx.InvoicePending {
			out.PendingRevenue += inv.Amount
		}
	}
	out.TotalRevenue = round2(out.TotalRevenue)
	out.PendingRevenue = round2(out.PendingRevenue)

	for _, status := range []recordsx.AppointmentStatus{
		recordsx.AppointmentCompleted,
		recordsx.AppointmentScheduled,
		recordsx.AppointmentCancelled,
	} {
		n := 0
		for _, a := range s.Appointments {
			if a.Status == status {
				n++
			}
		}
		out.StatusCounts = append(out.StatusCounts, StatusCount{Status: status, Count: n})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
