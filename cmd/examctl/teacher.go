package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
)

func printTeacherExams(cmdCtx *commandContext, exams []exam.Exam) error {
	if len(exams) == 0 {
		return writeln(cmdCtx.Out, "No exams created yet")
	}
	w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tTITLE\tSUBJECT\tSCHEDULED\tSTATUS\tSTUDENTS\tSUBMISSIONS"); err != nil {
		return fmt.Errorf("write exams header: %w", err)
	}
	for _, e := range exams {
		if err := writef(w, "%d\t%s\t%s\t%s %s\t%s\t%d\t%d\n",
			e.ID, e.Title, e.Subject, e.Date, e.Time, e.Status, e.StudentsCount, e.SubmissionsCount); err != nil {
			return fmt.Errorf("write exam %d: %w", e.ID, err)
		}
	}
	return w.Flush()
}

func runCreateExam(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "create-exam")
	var in exam.Input
	fs.StringVar(&in.Title, "title", "", "Exam title")
	fs.StringVar(&in.Subject, "subject", "", "Subject")
	fs.StringVar(&in.Date, "date", "", "Date as YYYY-MM-DD")
	fs.StringVar(&in.Time, "time", "", "Start time as HH:MM")
	fs.IntVar(&in.Duration, "duration", 60, "Duration in minutes")
	fs.StringVar(&in.Description, "description", "", "Optional description")
	if _, err := parseArgs(fs, args, 0, "--title --subject --date --time --duration"); err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Subject) == "" {
		return errors.New("--title and --subject are required")
	}
	return withRole(cmdCtx, domainauth.RoleTeacher, func(c *client) error {
		created, err := c.session.Teacher().CreateExam(cmdCtx.Ctx, in)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "Created exam %d: %s\n", created.ID, created.Title)
	})
}

func runDeleteExam(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "delete-exam")
	rest, err := parseArgs(fs, args, 1, "ID")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleTeacher, func(c *client) error {
		if err := c.session.Teacher().DeleteExam(cmdCtx.Ctx, id); err != nil {
			return err
		}
		return writef(cmdCtx.Out, "Deleted exam %d\n", id)
	})
}

func runSubmissions(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "submissions")
	rest, err := parseArgs(fs, args, 1, "EXAM_ID")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "exam id")
	if err != nil {
		return err
	}
	return withRole(cmdCtx, domainauth.RoleTeacher, func(c *client) error {
		subs, err := c.session.Teacher().Submissions(cmdCtx.Ctx, id)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			return writef(cmdCtx.Out, "No submissions for exam %d\n", id)
		}
		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		if err := writeln(w, "ID\tSTUDENT\tSUBMITTED\tSTATUS\tSCORE\tGRADE"); err != nil {
			return fmt.Errorf("write submissions header: %w", err)
		}
		for _, s := range subs {
			score := "-"
			if s.Score != nil {
				score = fmt.Sprintf("%d", *s.Score)
			}
			grade := s.Grade
			if grade == "" {
				grade = "-"
			}
			if err := writef(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.StudentName, s.SubmittedAt.Format("2006-01-02 15:04"), s.Status, score, grade); err != nil {
				return fmt.Errorf("write submission %d: %w", s.ID, err)
			}
		}
		return w.Flush()
	})
}

func runGrade(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "grade")
	var score int
	fs.IntVar(&score, "score", 0, "Numeric score")
	rest, err := parseArgs(fs, args, 2, "SUBMISSION_ID GRADE --score N")
	if err != nil {
		return err
	}
	id, err := parseID(rest[0], "submission id")
	if err != nil {
		return err
	}
	if score < 0 {
		return errors.New("--score must not be negative")
	}
	g := exam.Grade{Score: score, Grade: strings.TrimSpace(rest[1])}
	if g.Grade == "" {
		return errors.New("grade must not be empty")
	}
	return withRole(cmdCtx, domainauth.RoleTeacher, func(c *client) error {
		sub, err := c.session.Teacher().GradeSubmission(cmdCtx.Ctx, id, g)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "Graded submission %d for %s: %s (%d)\n", sub.ID, sub.StudentName, sub.Grade, g.Score)
	})
}
