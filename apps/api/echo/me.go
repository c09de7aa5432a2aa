package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
)

var errNoStudentProfile = core.NewNotFoundError("no student profile is linked to this account")

// registerMeAPI serves the student and teacher portals.
func (s *Server) registerMeAPI(g *echo.Group, m ...echo.MiddlewareFunc) {
	mg := g.Group("/me", m...)
	mg.GET("", s.retrieveMe)
	mg.GET("/student", s.retrieveMyStudent)
	mg.GET("/sessions", s.queryMySessions)
	mg.GET("/receipts", s.queryMyReceipts)
	mg.GET("/classes", s.queryMyClasses)
	mg.GET("/payroll", s.queryMyPayroll)
}

// ctxStudent returns the Student profile linked to the context user.
func (s *Server) ctxStudent(ctx echo.Context) (student.Student, error) {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return student.Student{}, err
	}
	if !usr.IsStudent() {
		return student.Student{}, errNoStudentProfile
	}
	std, err := s.deps.StudentSvc.GetByUserID(ctx.Request().Context(), usr.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return student.Student{}, errNoStudentProfile
		}
		return student.Student{}, errors.Wrap(err, "finding student by user ID")
	}
	return std, nil
}

func (s *Server) retrieveMe(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) retrieveMyStudent(ctx echo.Context) error {
	std, err := s.ctxStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

// queryMySessions lists the sessions of the student, or those a teacher taught or owns.
func (s *Server) queryMySessions(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}
	from, err := queryDate(ctx, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "to")
	if err != nil {
		return err
	}

	filter := attendance.SessionFilter{ClassID: ctx.QueryParam("class_id"), DateFrom: from, DateTo: to}
	switch {
	case usr.IsTeacher():
		filter.VisibleTo = usr.ID
	case usr.IsStudent():
		std, err := s.ctxStudent(ctx)
		if err != nil {
			return err
		}
		filter.StudentID = std.ID
	default:
		return ctx.JSON(http.StatusOK, []attendance.Session{})
	}

	sessions, err := s.deps.AttendanceSvc.QuerySessions(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (s *Server) queryMyReceipts(ctx echo.Context) error {
	std, err := s.ctxStudent(ctx)
	if err != nil {
		return err
	}
	receipts, err := s.deps.ReceiptSvc.Query(ctx.Request().Context(), &receipt.QueryFilter{StudentID: std.ID})
	if err != nil {
		return errors.Wrap(err, "querying receipts")
	}
	if receipts == nil {
		receipts = []receipt.Receipt{}
	}
	return ctx.JSON(http.StatusOK, receipts)
}

// queryMyClasses lists the classes a teacher is assigned to, or a student is enrolled in.
func (s *Server) queryMyClasses(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}

	active := true
	filter := &class.QueryFilter{IsActive: &active}
	switch {
	case usr.IsTeacher():
		filter.TeacherID = usr.ID
	case usr.IsStudent():
		std, err := s.ctxStudent(ctx)
		if err != nil {
			return err
		}
		filter.StudentID = std.ID
	default:
		return ctx.JSON(http.StatusOK, []class.Class{})
	}

	classes, err := s.deps.ClassSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

type myPayrollResponse struct {
	Summary payroll.Summary `json:"summary"`
	Entries []payroll.Entry `json:"entries"`
}

func (s *Server) queryMyPayroll(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}
	if !usr.IsTeacher() {
		return errHttpForbidden
	}

	filter := &payroll.QueryFilter{TeacherID: usr.ID, Period: ctx.QueryParam("period"), Statuses: queryList(ctx, "status")}
	filter.Clean()
	rctx := ctx.Request().Context()
	entries, err := s.deps.PayrollSvc.Query(rctx, filter)
	if err != nil {
		return errors.Wrap(err, "querying payroll")
	}
	if entries == nil {
		entries = []payroll.Entry{}
	}
	sum, err := s.deps.PayrollSvc.Summary(rctx, usr.ID, filter.Period)
	if err != nil {
		return errors.Wrap(err, "summarizing payroll")
	}
	return ctx.JSON(http.StatusOK, myPayrollResponse{Summary: sum, Entries: entries})
}
