package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

func (s *Server) registerAttendanceAPI(g *echo.Group, m ...echo.MiddlewareFunc) {
	ag := g.Group("/attendance", append(m, staffMiddleware())...)
	ag.GET("/sessions", s.querySessions)
	ag.POST("/sessions", s.logSession)
	ag.GET("/sessions/:id", s.retrieveSession)
	ag.PUT("/sessions/:id", s.updateSession)
	ag.DELETE("/sessions/:id", s.destroySession)
	ag.GET("/packages", s.queryPackages)
	ag.GET("/packages/:id", s.retrievePackage)
	ag.GET("/cycle", s.retrieveCycle)
}

func sessionVisibleTo(usr user.User, sess attendance.Session) bool {
	return usr.IsAdmin() || sess.TeacherID == usr.ID || sess.OriginalTeacherID == usr.ID
}

func (s *Server) querySessions(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	from, err := queryDate(ctx, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "to")
	if err != nil {
		return err
	}

	filter := attendance.SessionFilter{
		ClassID:   ctx.QueryParam("class_id"),
		StudentID: ctx.QueryParam("student_id"),
		TeacherID: ctx.QueryParam("teacher_id"),
		PackageID: ctx.QueryParam("package_id"),
		DateFrom:  from,
		DateTo:    to,
	}
	if !ctxUsr.IsAdmin() {
		filter.VisibleTo = ctxUsr.ID
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

func (s *Server) logSession(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data attendance.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	sess, err := s.deps.AttendanceSvc.LogSession(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "logging session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (s *Server) retrieveSession(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sess, err := s.deps.AttendanceSvc.GetSession(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	if !sessionVisibleTo(ctxUsr, sess) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *Server) updateSession(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data attendance.UpdateSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	sess, err := s.deps.AttendanceSvc.UpdateSession(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *Server) destroySession(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := s.deps.AttendanceSvc.DeleteSession(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryPackages(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := attendance.PackageFilter{
		ClassID:           ctx.QueryParam("class_id"),
		StudentID:         ctx.QueryParam("student_id"),
		OriginalTeacherID: ctx.QueryParam("teacher_id"),
		Status:            core.CleanString(ctx.QueryParam("status"), true /* lower */),
	}

	reqCtx := ctx.Request().Context()
	packages, err := s.deps.AttendanceSvc.QueryPackages(reqCtx, filter)
	if err != nil {
		return errors.Wrap(err, "querying packages")
	}

	if !ctxUsr.IsAdmin() {
		taught, err := s.deps.AttendanceSvc.QuerySessions(reqCtx, attendance.SessionFilter{
			ClassID:   filter.ClassID,
			StudentID: filter.StudentID,
			TeacherID: ctxUsr.ID,
		})
		if err != nil {
			return errors.Wrap(err, "querying taught sessions")
		}
		visible := packages[:0]
		for _, pkg := range packages {
			if packageVisibleTo(ctxUsr, pkg, taught) {
				visible = append(visible, pkg)
			}
		}
		packages = visible
	}
	if packages == nil {
		packages = []attendance.Package{}
	}
	return ctx.JSON(http.StatusOK, packages)
}

// packageVisibleTo reports whether usr owns pkg or taught one of sessions in it.
func packageVisibleTo(usr user.User, pkg attendance.Package, sessions []attendance.Session) bool {
	if usr.IsAdmin() || pkg.OriginalTeacherID == usr.ID {
		return true
	}
	for _, sess := range sessions {
		if sess.PackageID == pkg.ID && sess.TeacherID == usr.ID {
			return true
		}
	}
	return false
}

// retrievePackage returns a package with its sessions to admins, its owner and the teachers who taught in it.
func (s *Server) retrievePackage(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	pkg, err := s.deps.AttendanceSvc.GetPackage(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting package")
	}

	if !packageVisibleTo(ctxUsr, pkg, pkg.Sessions) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, pkg)
}

// retrieveCycle returns the current cycle of ?class_id and ?student_id.
// Any teacher may read it, substitutes included.
func (s *Server) retrieveCycle(ctx echo.Context) error {
	classID, studentID := ctx.QueryParam("class_id"), ctx.QueryParam("student_id")
	if classID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "this field is required"})
	}
	if studentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
	}

	rctx := ctx.Request().Context()
	cls, err := s.deps.ClassSvc.Get(rctx, classID)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	if !cls.HasStudent(studentID) {
		return errHttpNotFound
	}

	cycle, err := s.deps.AttendanceSvc.CurrentCycle(rctx, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "getting current cycle")
	}
	return ctx.JSON(http.StatusOK, cycle)
}
