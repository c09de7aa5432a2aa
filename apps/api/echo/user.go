package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

var (
	errObjNotFoundInCtx  = errors.New("object not found in echo.Context")
	errNoPermsToSetRoles = "not enough rights to set these roles"
)

func (s *Server) registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", s.login)
	ug.POST("/password-reset", s.resetPassword)
	ug.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt, s.activeUserMiddleware())
	ag.POST("/token-refresh", s.refreshUserToken)
	ag.POST("/register", s.createUser, adminMiddleware())
	ag.GET("", s.queryUsers, adminMiddleware())
	ag.DELETE("", s.destroyUsers, adminMiddleware())
	ag.GET("/roles", s.queryRoles, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", s.ctxUserOrAdminMiddleware())
	dg.GET("", s.retrieveUser)
	dg.PUT("", s.updateUser)
	dg.DELETE("", s.destroyUser, adminMiddleware())
}

func ctxObjectUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errObjNotFoundInCtx, "retrieving user from context")
	}
	return usr, nil
}

func (s *Server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := s.deps.UserSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	claims, err := s.authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(s.deps.Conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	if err := s.deps.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || core.IsNotFound(err)) {
		// do not return errors to attackers
		s.deps.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	if err := s.deps.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (s *Server) queryUsers(ctx echo.Context) error {
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	createdFrom, err := queryDate(ctx, "created_from")
	if err != nil {
		return err
	}
	createdTo, err := queryDate(ctx, "created_to")
	if err != nil {
		return err
	}
	filter := &user.QueryFilter{
		Search:      ctx.QueryParam("search"),
		Roles:       queryList(ctx, "role"),
		IsActive:    isActive,
		CreatedFrom: createdFrom.Time,
	}
	if !createdTo.IsZero() {
		// inclusive upper bound
		filter.CreatedTo = createdTo.AddDate(0, 0, 1)
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := s.deps.UserSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *Server) retrieveUser(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) updateUser(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		// `IsActive` and `Roles` can only be changed by admin
		// `Username` and `Email` can only be changed by admin for now
		if data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != "" {
			return errHttpForbidden
		}
	} else if usr.ID != ctxUsr.ID && user.MaxRolePriority(usr.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return errHttpForbidden
	}

	if err := data.Validate(usr, s.deps.Validate); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err = s.deps.UserSvc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// checkCanDelete forbids deleting yourself or a user with a higher role than yours.
func checkCanDelete(ctxUsr user.User, targets ...user.User) error {
	for _, usr := range targets {
		if usr.ID == ctxUsr.ID {
			return errHttpForbidden
		}
		if user.MaxRolePriority(usr.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
			return errHttpForbidden
		}
	}
	return nil
}

func (s *Server) destroyUser(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := checkCanDelete(ctxUsr, usr); err != nil {
		return err
	}

	if err := s.deps.UserSvc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) destroyUsers(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rctx := ctx.Request().Context()
	targets := make([]user.User, 0, len(query.IDs))
	for _, id := range query.IDs {
		usr, err := s.deps.UserSvc.GetByID(rctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return errors.Wrap(err, "finding user by ID")
		}
		targets = append(targets, usr)
	}
	if err := checkCanDelete(ctxUsr, targets...); err != nil {
		return err
	}

	if err := s.deps.UserSvc.Delete(rctx, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (s *Server) refreshUserToken(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}
