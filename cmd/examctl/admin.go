package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
)

func runUsers(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "users")
	var filter exam.AccountFilter
	var role string
	fs.StringVar(&filter.Search, "search", "", "Match name or email")
	fs.StringVar(&role, "role", "", "Only list accounts with this role")
	if _, err := parseArgs(fs, args, 0, "[--search TEXT] [--role ROLE]"); err != nil {
		return err
	}
	if role != "" {
		r, err := domainauth.ParseRole(role)
		if err != nil {
			return fmt.Errorf("--role: %w", err)
		}
		filter.Role = r
	}

	return withRole(cmdCtx, domainauth.RoleAdmin, func(c *client) error {
		list, err := c.session.Admin().Users(cmdCtx.Ctx, filter)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		if err := writeln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS"); err != nil {
			return fmt.Errorf("write users header: %w", err)
		}
		for _, a := range list.Users {
			if err := writef(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Email, a.Role, a.Status); err != nil {
				return fmt.Errorf("write user %d: %w", a.ID, err)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		n := list.Counts
		return writef(cmdCtx.Out, "\n%d accounts: %d students, %d teachers, %d admins, %d proctors\n",
			n.Total, n.Students, n.Teachers, n.Admins, n.Proctors)
	})
}

func runStats(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "stats")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleAdmin, func(c *client) error {
		stats, err := c.session.Admin().SystemStats(cmdCtx.Ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		if err := writeln(w, "Metric\tValue"); err != nil {
			return fmt.Errorf("write stats header: %w", err)
		}
		rows := []struct {
			label string
			value int
		}{
			{"Total Users", stats.TotalUsers},
			{"Total Exams", stats.TotalExams},
			{"Active Exams", stats.ActiveExams},
			{"Submissions", stats.TotalSubmissions},
		}
		for _, row := range rows {
			if err := writef(w, "%s\t%d\n", row.label, row.value); err != nil {
				return fmt.Errorf("write %s: %w", row.label, err)
			}
		}
		return w.Flush()
	})
}

func runReport(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "report")
	var req exam.ReportRequest
	fs.StringVar(&req.Filter, "filter", "", "JMESPath expression applied to the report rows")
	rest, err := parseArgs(fs, args, 1, "TYPE [--filter EXPR]")
	if err != nil {
		return err
	}
	req.Type = strings.ToLower(strings.TrimSpace(rest[0]))

	return withRole(cmdCtx, domainauth.RoleAdmin, func(c *client) error {
		report, err := c.session.Admin().GenerateReport(cmdCtx.Ctx, req)
		if err != nil {
			return err
		}
		if err := writef(cmdCtx.Out, "Report %s (%s) generated %s\n",
			report.ReportID, report.Type, report.GeneratedAt.Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
		if report.DownloadURL != "" {
			if err := writef(cmdCtx.Out, "Download: %s\n", report.DownloadURL); err != nil {
				return err
			}
		}
		enc := json.NewEncoder(cmdCtx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Rows)
	})
}
