package echoapi

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryDate parses the YYYY-MM-DD query param name; a blank param yields the zero Date.
func queryDate(ctx echo.Context, name string) (core.Date, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(val)
	if err != nil {
		return core.Date{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: "expected a YYYY-MM-DD date"})
	}
	return d, nil
}

// queryBool parses the boolean query param name; a blank param yields nil.
func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: "expected a boolean"})
	}
	return &b, nil
}

// queryList collects repeated and comma separated values of the query param name.
func queryList(ctx echo.Context, name string) []string {
	var list []string
	for _, val := range ctx.QueryParams()[name] {
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}

	IDsRequest struct {
		IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
	}

	ReasonRequest struct {
		Reason string `json:"reason" validate:"max=255"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
