package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) registerStudentAPI(g *echo.Group, m ...echo.MiddlewareFunc) {
	sg := g.Group("/students", append(m, staffMiddleware())...)
	sg.GET("", s.queryStudents)
	sg.POST("", s.createStudent, adminMiddleware())
	sg.GET("/import-template", s.studentImportTemplate, adminMiddleware())
	sg.POST("/import", s.importStudents, adminMiddleware())
	sg.GET("/follow-ups", s.queryFollowUps, adminMiddleware())
	sg.POST("/notes/:noteId/resolve", s.resolveStudentNote, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id", s.studentMiddleware())
	dg.GET("", s.retrieveStudent)
	dg.PUT("", s.updateStudent, adminMiddleware())
	dg.DELETE("", s.destroyStudent, adminMiddleware())
	dg.GET("/notes", s.queryStudentNotes)
	dg.POST("/notes", s.createStudentNote)
}

// teacherStudentIDs returns the students enrolled in the classes of teacherID.
func (s *Server) teacherStudentIDs(ctx echo.Context, teacherID string) ([]string, error) {
	classes, err := s.deps.ClassSvc.Query(ctx.Request().Context(), &class.QueryFilter{TeacherID: teacherID})
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher classes")
	}
	ids := make([]string, 0)
	for _, c := range classes {
		for _, id := range c.StudentIDs {
			if !core.StringInSlice(id, ids) {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// studentMiddleware loads the Student of the :id param into the context.
// Teachers only reach the students of their classes.
func (s *Server) studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := s.getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			std, err := s.deps.StudentSvc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}
			if !ctxUsr.IsAdmin() {
				ids, err := s.teacherStudentIDs(ctx, ctxUsr.ID)
				if err != nil {
					return err
				}
				if !core.StringInSlice(std.ID, ids) {
					return errHttpNotFound
				}
			}
			ctx.Set(contextObjectKey, std)
			return next(ctx)
		}
	}
}

func ctxObjectStudent(ctx echo.Context) (student.Student, error) {
	std, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return student.Student{}, errors.Wrap(errObjNotFoundInCtx, "retrieving student from context")
	}
	return std, nil
}

func (s *Server) queryStudents(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := &student.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Statuses: queryList(ctx, "status"),
		Program:  ctx.QueryParam("program"),
	}
	if !ctxUsr.IsAdmin() {
		if filter.IDs, err = s.teacherStudentIDs(ctx, ctxUsr.ID); err != nil {
			return err
		}
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := s.deps.StudentSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (s *Server) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	std, err := s.deps.StudentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (s *Server) retrieveStudent(ctx echo.Context) error {
	std, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (s *Server) updateStudent(ctx echo.Context) error {
	std, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	std, err = s.deps.StudentSvc.Update(ctx.Request().Context(), std, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (s *Server) destroyStudent(ctx echo.Context) error {
	std, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}
	if err := s.deps.StudentSvc.Delete(ctx.Request().Context(), std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryStudentNotes(ctx echo.Context) error {
	std, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}
	notes, err := s.deps.StudentSvc.ListNotes(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "listing notes")
	}
	if notes == nil {
		notes = []student.Note{}
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (s *Server) createStudentNote(ctx echo.Context) error {
	std, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data student.NewNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNote")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	note, err := s.deps.StudentSvc.AddNote(ctx.Request().Context(), std, ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding note")
	}
	return ctx.JSON(http.StatusCreated, note)
}

func (s *Server) resolveStudentNote(ctx echo.Context) error {
	note, err := s.deps.StudentSvc.ResolveNote(ctx.Request().Context(), ctx.Param("noteId"))
	if err != nil {
		return errors.Wrap(err, "resolving note")
	}
	return ctx.JSON(http.StatusOK, note)
}

// queryFollowUps lists the unresolved follow-ups due on or before ?until (default today).
func (s *Server) queryFollowUps(ctx echo.Context) error {
	until, err := queryDate(ctx, "until")
	if err != nil {
		return err
	}
	if until.IsZero() {
		until = core.Today()
	}
	notes, err := s.deps.StudentSvc.DueFollowUps(ctx.Request().Context(), until)
	if err != nil {
		return errors.Wrap(err, "querying follow-ups")
	}
	if notes == nil {
		notes = []student.Note{}
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (s *Server) studentImportTemplate(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="students-import.xlsx"`)
	ctx.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	ctx.Response().WriteHeader(http.StatusOK)
	return student.WriteImportTemplate(ctx.Response())
}

// importStudents reads the xlsx workbook uploaded as the "file" form field.
func (s *Server) importStudents(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close() //nolint:errcheck

	res, err := s.deps.StudentSvc.Import(ctx.Request().Context(), f, s.deps.Validate)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	if res.Created == nil {
		res.Created = []student.Student{}
	}
	if res.Skipped == nil {
		res.Skipped = []student.ImportRowError{}
	}
	return ctx.JSON(http.StatusOK, res)
}
