package absence

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReconcileReport summarizes one Reconcile run.
type ReconcileReport struct {
	Checked   int           `json:"checked"`
	Updated   []Entitlement `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Skipped   []string      `json:"skipped"` // employees whose requests exceed their total
}

// Reconcile rebuilds the taken, planned and pending buckets of every
// employee who has paid requests starting in the current year, using
// today's date:
//
//	approved and started       -> taken
//	approved and not started   -> planned
//	undecided                  -> pending
//	rejected, cancelled        -> nothing
//
// Unallocated is whatever remains of the total. Rows that already match
// are not rewritten. This is what rolls planned hours into taken as
// absences come due, and what repairs an allowance after a partial write.
//
// An employee whose live requests add up to more than their total is left
// untouched and reported in Skipped.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	report := ReconcileReport{Updated: []Entitlement{}, Skipped: []string{}}

	// The two sheets are independent; read them together.
	var (
		reqs []Request
		ents []Entitlement
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reqs, err = s.Requests.All(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		ents, err = s.Entitlements.List(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return report, err
	}

	today := s.today()
	held := map[string]*Entitlement{}
	for _, r := range reqs {
		// Only this leave year's paid absences draw on the allowance.
		if r.Unpaid || r.StartDate.Year() != today.Year() {
			continue
		}
		acc, ok := held[r.EmployeeID]
		if !ok {
			acc = &Entitlement{EmployeeID: r.EmployeeID}
			held[r.EmployeeID] = acc
		}
		if b, ok := bucketFor(r, today); ok {
			acc.add(b, r.Duration)
		}
	}

	sort.Slice(ents, func(i, j int) bool { return ents[i].EmployeeID < ents[j].EmployeeID })
	for _, current := range ents {
		acc, ok := held[current.EmployeeID]
		if !ok {
			continue
		}
		report.Checked++

		want := Entitlement{
			EmployeeID: current.EmployeeID,
			Total:      current.Total,
			Taken:      acc.Taken,
			Planned:    acc.Planned,
			Pending:    acc.Pending,
		}
		want.Unallocated = want.Total - (want.Taken + want.Planned + want.Pending)

		log := logrus.WithField("employee_id", current.EmployeeID)
		if want.Unallocated < 0 {
			log.WithFields(logrus.Fields{
				"total":  int(want.Total),
				"booked": int(want.Taken + want.Planned + want.Pending),
			}).Warn("requests exceed allowance; leaving entitlement as is")
			report.Skipped = append(report.Skipped, current.EmployeeID)
			continue
		}
		if want == current {
			report.Unchanged++
			continue
		}

		if err := s.Entitlements.Overwrite(ctx, want); err != nil {
			return report, err
		}
		report.Updated = append(report.Updated, want)
		log.WithFields(logrus.Fields{
			"taken":       int(want.Taken),
			"planned":     int(want.Planned),
			"pending":     int(want.Pending),
			"unallocated": int(want.Unallocated),
		}).Info("entitlement reconciled")

		s.Audit.Record(ctx, AuditEntry{
			ActorID:    "system",
			Action:     AuditReconciliation,
			EmployeeID: current.EmployeeID,
			Payload: map[string]any{
				"before": entitlementToRow(current),
				"after":  entitlementToRow(want),
			},
		})
	}
	return report, nil
}
