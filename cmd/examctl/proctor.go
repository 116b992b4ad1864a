package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
)

func runActiveExams(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "active-exams")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleProctor, func(c *client) error {
		active, err := c.session.Proctor().ActiveExams(cmdCtx.Ctx)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return writeln(cmdCtx.Out, "No exams in progress")
		}
		now := time.Now()
		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		if err := writeln(w, "ID\tTITLE\tACTIVE\tREMAINING"); err != nil {
			return fmt.Errorf("write active exams header: %w", err)
		}
		for _, a := range active {
			if err := writef(w, "%d\t%s\t%d/%d\t%s\n",
				a.ID, a.Title, a.ActiveStudents, a.StudentsCount, a.Remaining(now)); err != nil {
				return fmt.Errorf("write active exam %d: %w", a.ID, err)
			}
		}
		return w.Flush()
	})
}

func runStudents(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "students")
	rest, err := parseArgs(fs, args, 1, "EXAM_ID")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleProctor, func(c *client) error {
		students, err := c.session.Proctor().Students(cmdCtx.Ctx, id)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		if err := writeln(w, "STUDENT ID\tNAME\tSTATUS\tLAST ACTIVITY"); err != nil {
			return fmt.Errorf("write students header: %w", err)
		}
		for _, s := range students {
			if err := writef(w, "%d\t%s\t%s\t%s\n",
				s.StudentID, s.StudentName, s.Status, s.LastActivity.Format("15:04:05")); err != nil {
				return fmt.Errorf("write student %d: %w", s.StudentID, err)
			}
		}
		return w.Flush()
	})
}

func runLogs(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "logs")
	rest, err := parseArgs(fs, args, 1, "EXAM_ID")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleProctor, func(c *client) error {
		logs, err := c.session.Proctor().ActivityLogs(cmdCtx.Ctx, id)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			return writef(cmdCtx.Out, "No activity recorded for exam %d\n", id)
		}
		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		if err := writeln(w, "TIME\tSEVERITY\tSTUDENT\tACTIVITY"); err != nil {
			return fmt.Errorf("write logs header: %w", err)
		}
		for _, l := range logs {
			if err := writef(w, "%s\t%s\t%s\t%s\n",
				l.Timestamp.Format("15:04:05"), l.Severity, l.StudentName, l.Activity); err != nil {
				return fmt.Errorf("write log %d: %w", l.ID, err)
			}
		}
		return w.Flush()
	})
}

func runFlag(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "flag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 4 {
		return errors.New("usage: examctl flag EXAM_ID STUDENT_ID TYPE DESCRIPTION")
	}
	examID, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	studentID, err := parseID(rest[1], "student id")
	if err != nil {
		return err
	}
	req := exam.FlagRequest{
		StudentID:    studentID,
		ActivityType: rest[2],
		Description:  strings.Join(rest[3:], " "),
	}
	return withRole(cmdCtx, domainauth.RoleProctor, func(c *client) error {
		receipt, err := c.session.Proctor().FlagSuspiciousActivity(cmdCtx.Ctx, examID, req)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "Flagged student %d on exam %d (flag %s)\n", studentID, examID, receipt.FlagID)
	})
}

func runEnd(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "end")
	rest, err := parseArgs(fs, args, 1, "EXAM_ID")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleProctor, func(c *client) error {
		if err := c.session.Proctor().EndMonitoring(cmdCtx.Ctx, id); err != nil {
			return err
		}
		return writef(cmdCtx.Out, "Monitoring ended for exam %d\n", id)
	})
}
