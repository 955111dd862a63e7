package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/worktime/absence"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rebuild every allowance from the request rows",
	Long: `Recomputes taken, planned and pending for every employee with paid
requests and rewrites allowances that drifted. Employees whose requests
exceed their total are reported and left alone.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.absences.Reconcile(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "checked %d, updated %d, unchanged %d\n", report.Checked, len(report.Updated), report.Unchanged)
		for _, e := range report.Updated {
			fmt.Fprintf(out, "  %s: taken %s, planned %s, pending %s, unallocated %s\n", e.EmployeeID,
				absence.DaysString(e.Taken), absence.DaysString(e.Planned),
				absence.DaysString(e.Pending), absence.DaysString(e.Unallocated))
		}
		for _, id := range report.Skipped {
			fmt.Fprintf(out, "  %s: skipped, requests exceed the allowance\n", id)
		}
		return nil
	},
}

var provisionFlags struct {
	employee string
	hours    int
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create an employee's allowance",
	Example: `  server provision --employee E1 --hours 200`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if provisionFlags.employee == "" {
			return fmt.Errorf("--employee is required")
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		e, err := a.absences.Provision(cmd.Context(), absence.Admin(cfg.AdminID), provisionFlags.employee, absence.Hours(provisionFlags.hours))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "provisioned %s with %s days (%d hours)\n",
			e.EmployeeID, absence.DaysString(e.Total), int(e.Total))
		return nil
	},
}

func init() {
	provisionCmd.Flags().StringVar(&provisionFlags.employee, "employee", "", "employee id")
	provisionCmd.Flags().IntVar(&provisionFlags.hours, "hours", 200, "yearly allowance in hours")
}
