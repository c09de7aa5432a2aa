package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
)

func (s *Server) registerPayrollAPI(g *echo.Group, m ...echo.MiddlewareFunc) {
	pg := g.Group("/payroll", append(m, staffMiddleware())...)
	pg.GET("", s.queryPayroll)
	pg.GET("/summary", s.payrollSummary)
	pg.POST("/approve", s.approvePayroll, adminMiddleware())
	pg.GET("/:id", s.retrievePayroll)
	pg.POST("/:id/pay", s.payPayroll, adminMiddleware())
	pg.POST("/:id/cancel", s.cancelPayroll, adminMiddleware())
}

// queryPayroll lists entries; teachers only see their own.
func (s *Server) queryPayroll(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := &payroll.QueryFilter{
		TeacherID: ctx.QueryParam("teacher_id"),
		PackageID: ctx.QueryParam("package_id"),
		Statuses:  queryList(ctx, "status"),
		Period:    ctx.QueryParam("period"),
	}
	if !ctxUsr.IsAdmin() {
		filter.TeacherID = ctxUsr.ID
	}
	filter.Clean()

	entries, err := s.deps.PayrollSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payroll")
	}
	if entries == nil {
		entries = []payroll.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *Server) payrollSummary(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	teacherID := ctx.QueryParam("teacher_id")
	if !ctxUsr.IsAdmin() {
		teacherID = ctxUsr.ID
	}

	sum, err := s.deps.PayrollSvc.Summary(ctx.Request().Context(), teacherID, ctx.QueryParam("period"))
	if err != nil {
		return errors.Wrap(err, "summarizing payroll")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (s *Server) retrievePayroll(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	entry, err := s.deps.PayrollSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payroll entry")
	}
	if !ctxUsr.IsAdmin() && entry.TeacherID != ctxUsr.ID {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (s *Server) approvePayroll(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data IDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IDsRequest")
	}
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}

	entries, err := s.deps.PayrollSvc.Approve(ctx.Request().Context(), ctxUsr.ID, data.IDs...)
	if err != nil {
		return errors.Wrap(err, "approving payroll")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *Server) payPayroll(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data payroll.PayEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PayEntry")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	entry, err := s.deps.PayrollSvc.Pay(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "paying payroll entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (s *Server) cancelPayroll(ctx echo.Context) error {
	var data ReasonRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReasonRequest")
	}
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}

	entry, err := s.deps.PayrollSvc.Cancel(ctx.Request().Context(), ctx.Param("id"), data.Reason)
	if err != nil {
		return errors.Wrap(err, "cancelling payroll entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}
