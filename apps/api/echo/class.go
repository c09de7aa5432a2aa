package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
)

type EnrolRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
}

func (s *Server) registerClassAPI(g *echo.Group, m ...echo.MiddlewareFunc) {
	cg := g.Group("/classes", append(m, staffMiddleware())...)
	cg.GET("", s.queryClasses)
	cg.POST("", s.createClass, adminMiddleware())

	// detail endpoints
	dg := cg.Group("/:id", s.classMiddleware())
	dg.GET("", s.retrieveClass)
	dg.PUT("", s.updateClass, adminMiddleware())
	dg.DELETE("", s.destroyClass, adminMiddleware())
	dg.POST("/students", s.enrolStudent, adminMiddleware())
	dg.DELETE("/students/:studentId", s.unenrolStudent, adminMiddleware())
}

// classMiddleware loads the Class of the :id param into the context.
// Teachers only reach their own classes.
func (s *Server) classMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := s.getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			cls, err := s.deps.ClassSvc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding class by ID")
			}
			if !ctxUsr.IsAdmin() && cls.TeacherID != ctxUsr.ID {
				return errHttpNotFound
			}
			ctx.Set(contextObjectKey, cls)
			return next(ctx)
		}
	}
}

func ctxObjectClass(ctx echo.Context) (class.Class, error) {
	cls, ok := ctx.Get(contextObjectKey).(class.Class)
	if !ok {
		return class.Class{}, errors.Wrap(errObjNotFoundInCtx, "retrieving class from context")
	}
	return cls, nil
}

func (s *Server) queryClasses(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}

	filter := &class.QueryFilter{
		Search:    ctx.QueryParam("search"),
		TeacherID: ctx.QueryParam("teacher_id"),
		StudentID: ctx.QueryParam("student_id"),
		IsActive:  isActive,
	}
	if !ctxUsr.IsAdmin() {
		filter.TeacherID = ctxUsr.ID
	}
	filter.Clean()

	classes, err := s.deps.ClassSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (s *Server) createClass(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	cls, err := s.deps.ClassSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (s *Server) retrieveClass(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (s *Server) updateClass(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}

	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	cls, err = s.deps.ClassSvc.Update(ctx.Request().Context(), cls, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (s *Server) destroyClass(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}
	if err := s.deps.ClassSvc.Delete(ctx.Request().Context(), cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) enrolStudent(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}

	var data EnrolRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrolRequest")
	}
	data.StudentID = core.CleanString(data.StudentID, true /* lower */)
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}

	cls, err = s.deps.ClassSvc.AddStudent(ctx.Request().Context(), cls, data.StudentID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (s *Server) unenrolStudent(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}
	cls, err = s.deps.ClassSvc.RemoveStudent(ctx.Request().Context(), cls, ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.JSON(http.StatusOK, cls)
}
