package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
)

const maxQRSize = 1024

// ReceiptVerification is the public view of a receipt.
type ReceiptVerification struct {
	Academy     string          `json:"academy"`
	Number      string          `json:"number"`
	StudentName string          `json:"student_name"`
	Total       decimal.Decimal `json:"total"`
	PaidOn      core.Date       `json:"paid_on"`
	Valid       bool            `json:"valid"`
}

func (s *Server) registerReceiptAPI(g *echo.Group, m ...echo.MiddlewareFunc) {
	// un-authed endpoint; receipt numbers contain slashes
	g.GET("/receipts/verify/*", s.verifyReceipt)

	rg := g.Group("/receipts", append(m, adminMiddleware())...)
	rg.GET("", s.queryReceipts)
	rg.POST("", s.issueReceipt)

	dg := rg.Group("/:id", s.receiptMiddleware())
	dg.GET("", s.retrieveReceipt)
	dg.POST("/void", s.voidReceipt)
	dg.POST("/send", s.sendReceipt)
	dg.GET("/print", s.printReceipt)
	dg.GET("/qr", s.receiptQRCode)
}

// receiptMiddleware loads the Receipt of the :id param into the context.
func (s *Server) receiptMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rct, err := s.deps.ReceiptSvc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding receipt by ID")
			}
			ctx.Set(contextObjectKey, rct)
			return next(ctx)
		}
	}
}

func ctxObjectReceipt(ctx echo.Context) (receipt.Receipt, error) {
	rct, ok := ctx.Get(contextObjectKey).(receipt.Receipt)
	if !ok {
		return receipt.Receipt{}, errors.Wrap(errObjNotFoundInCtx, "retrieving receipt from context")
	}
	return rct, nil
}

func (s *Server) queryReceipts(ctx echo.Context) error {
	from, err := queryDate(ctx, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "to")
	if err != nil {
		return err
	}
	voided, err := queryBool(ctx, "include_voided")
	if err != nil {
		return err
	}

	filter := &receipt.QueryFilter{
		StudentID:      ctx.QueryParam("student_id"),
		PackageID:      ctx.QueryParam("package_id"),
		DateFrom:       from,
		DateTo:         to,
		IncludeVoided:  voided != nil && *voided,
		NumberContains: ctx.QueryParam("number"),
	}
	filter.Clean()

	receipts, err := s.deps.ReceiptSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying receipts")
	}
	if receipts == nil {
		receipts = []receipt.Receipt{}
	}
	return ctx.JSON(http.StatusOK, receipts)
}

func (s *Server) issueReceipt(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data receipt.NewReceipt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReceipt")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	rct, err := s.deps.ReceiptSvc.Issue(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "issuing receipt")
	}
	return ctx.JSON(http.StatusCreated, rct)
}

func (s *Server) retrieveReceipt(ctx echo.Context) error {
	rct, err := ctxObjectReceipt(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rct)
}

func (s *Server) voidReceipt(ctx echo.Context) error {
	rct, err := ctxObjectReceipt(ctx)
	if err != nil {
		return err
	}

	var data receipt.VoidReceipt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VoidReceipt")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	rct, err = s.deps.ReceiptSvc.Void(ctx.Request().Context(), rct.ID, data)
	if err != nil {
		return errors.Wrap(err, "voiding receipt")
	}
	return ctx.JSON(http.StatusOK, rct)
}

func (s *Server) sendReceipt(ctx echo.Context) error {
	rct, err := ctxObjectReceipt(ctx)
	if err != nil {
		return err
	}
	if err := s.deps.ReceiptSvc.Send(ctx.Request().Context(), rct); err != nil {
		return errors.Wrap(err, "sending receipt")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "The receipt has been sent."})
}

func (s *Server) printReceipt(ctx echo.Context) error {
	rct, err := ctxObjectReceipt(ctx)
	if err != nil {
		return err
	}
	page, err := s.deps.ReceiptSvc.Render(rct)
	if err != nil {
		return errors.Wrap(err, "rendering receipt")
	}
	return ctx.HTMLBlob(http.StatusOK, page)
}

func (s *Server) receiptQRCode(ctx echo.Context) error {
	rct, err := ctxObjectReceipt(ctx)
	if err != nil {
		return err
	}

	var size int
	if val := ctx.QueryParam("size"); val != "" {
		if size, err = strconv.Atoi(val); err != nil || size < 0 || size > maxQRSize {
			return core.NewValidationError(nil, core.FieldError{Field: "size", Error: "expected a size between 0 and 1024"})
		}
	}
	png, err := s.deps.ReceiptSvc.QRCode(rct, size)
	if err != nil {
		return errors.Wrap(err, "generating QR code")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

func (s *Server) verifyReceipt(ctx echo.Context) error {
	number := strings.TrimPrefix(ctx.Param("*"), "/")
	if number == "" {
		return errHttpNotFound
	}
	rct, err := s.deps.ReceiptSvc.GetByNumber(ctx.Request().Context(), number)
	if err != nil {
		if core.IsNotFound(err) {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding receipt by number")
	}
	return ctx.JSON(http.StatusOK, ReceiptVerification{
		Academy:     s.deps.Conf.Academy.Name,
		Number:      rct.Number,
		StudentName: rct.StudentName,
		Total:       rct.Total,
		PaidOn:      rct.PaidOn,
		Valid:       !rct.IsVoided(),
	})
}
