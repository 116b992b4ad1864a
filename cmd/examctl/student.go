package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
)

func runExams(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "exams")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	c, err := openClient(cmdCtx)
	if err != nil {
		return err
	}
	role, err := c.requireAnyRole(domainauth.RoleStudent, domainauth.RoleTeacher)
	if err != nil {
		return err
	}

	if role == domainauth.RoleTeacher {
		exams, err := c.session.Teacher().Exams(cmdCtx.Ctx)
		if err != nil {
			return c.apiErr(err)
		}
		return printTeacherExams(cmdCtx, exams)
	}
	exams, err := c.session.Student().Exams(cmdCtx.Ctx)
	if err != nil {
		return c.apiErr(err)
	}
	return printStudentExams(cmdCtx, exams)
}

func printStudentExams(cmdCtx *commandContext, exams []exam.StudentExam) error {
	if len(exams) == 0 {
		return writeln(cmdCtx.Out, "No exams scheduled")
	}
	w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tTITLE\tSUBJECT\tDATE\tTIME\tDURATION\tAVAILABILITY"); err != nil {
		return fmt.Errorf("write exams header: %w", err)
	}
	for _, e := range exams {
		availability := string(e.Availability)
		if e.CanStart {
			availability += " (can start)"
		}
		if err := writef(w, "%d\t%s\t%s\t%s\t%s\t%d min\t%s\n",
			e.ID, e.Title, e.Subject, e.Date, e.Time, e.Duration, availability); err != nil {
			return fmt.Errorf("write exam %d: %w", e.ID, err)
		}
	}
	return w.Flush()
}

func runExam(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "exam")
	rest, err := parseArgs(fs, args, 1, "ID")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleStudent, func(c *client) error {
		e, err := c.session.Student().Exam(cmdCtx.Ctx, id)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		rows := [][2]string{
			{"Title", e.Title},
			{"Subject", e.Subject},
			{"Scheduled", e.Date + " " + e.Time},
			{"Duration", fmt.Sprintf("%d min", e.Duration)},
			{"Availability", string(e.Availability)},
			{"Can start", fmt.Sprintf("%t", e.CanStart)},
		}
		if e.Description != "" {
			rows = append(rows, [2]string{"Description", e.Description})
		}
		for _, row := range rows {
			if err := writef(w, "%s\t%s\n", row[0], row[1]); err != nil {
				return fmt.Errorf("write exam detail: %w", err)
			}
		}
		return w.Flush()
	})
}

func runResults(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "results")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleStudent, func(c *client) error {
		results, err := c.session.Student().Results(cmdCtx.Ctx)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return writeln(cmdCtx.Out, "No results yet")
		}
		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		if err := writeln(w, "EXAM\tSCORE\tGRADE\tCOMPLETED"); err != nil {
			return fmt.Errorf("write results header: %w", err)
		}
		for _, r := range results {
			if err := writef(w, "%s\t%d/%d\t%s\t%s\n",
				r.ExamTitle, r.Score, r.MaxScore, r.Grade, r.CompletedAt.Format("2006-01-02")); err != nil {
				return fmt.Errorf("write result %d: %w", r.ID, err)
			}
		}
		return w.Flush()
	})
}

func runStart(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "start")
	rest, err := parseArgs(fs, args, 1, "ID")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleStudent, func(c *client) error {
		attempt, err := c.session.Student().StartExam(cmdCtx.Ctx, id)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "Exam %d started at %s (session %s)\n",
			id, attempt.StartedAt.Format("15:04:05"), attempt.ExamSession)
	})
}

func runSubmit(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "submit")
	answers := map[string]string{}
	fs.StringToStringVar(&answers, "answer", answers, "Answer as QUESTION=ANSWER; repeatable")
	rest, err := parseArgs(fs, args, 1, "ID [--answer Q=A ...]")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleStudent, func(c *client) error {
		receipt, err := c.session.Student().SubmitExam(cmdCtx.Ctx, id, answers)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(answers))
		for k := range answers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := writef(cmdCtx.Out, "Submitted exam %d (submission %s)\n", id, receipt.SubmissionID); err != nil {
			return err
		}
		if len(keys) > 0 {
			return writef(cmdCtx.Out, "Answered: %v\n", keys)
		}
		return nil
	})
}
