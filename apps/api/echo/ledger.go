package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
)

type categoriesResponse struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

func (s *Server) registerLedgerAPI(g *echo.Group, m ...echo.MiddlewareFunc) {
	lg := g.Group("/ledger", append(m, adminMiddleware())...)
	lg.GET("/entries", s.queryLedgerEntries)
	lg.POST("/entries", s.recordLedgerEntry)
	lg.GET("/entries/:id", s.retrieveLedgerEntry)
	lg.DELETE("/entries/:id", s.destroyLedgerEntry)
	lg.GET("/categories", s.queryLedgerCategories)
	lg.GET("/cash-book", s.cashBook)
	lg.GET("/cash-book/export", s.exportCashBook)
}

func (s *Server) queryLedgerEntries(ctx echo.Context) error {
	from, err := queryDate(ctx, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "to")
	if err != nil {
		return err
	}

	filter := &ledger.QueryFilter{
		DateFrom: from,
		DateTo:   to,
		Kind:     ctx.QueryParam("kind"),
		Category: ctx.QueryParam("category"),
		RefType:  ctx.QueryParam("ref_type"),
		Search:   ctx.QueryParam("search"),
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	entries, err := s.deps.LedgerSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying ledger entries")
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *Server) recordLedgerEntry(ctx echo.Context) error {
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data ledger.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	entry, err := s.deps.LedgerSvc.Record(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "recording ledger entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (s *Server) retrieveLedgerEntry(ctx echo.Context) error {
	entry, err := s.deps.LedgerSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting ledger entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (s *Server) destroyLedgerEntry(ctx echo.Context) error {
	if err := s.deps.LedgerSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting ledger entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryLedgerCategories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, categoriesResponse{Income: ledger.IncomeCategories, Expense: ledger.ExpenseCategories})
}

func (s *Server) bindCashBook(ctx echo.Context) (ledger.CashBook, error) {
	from, err := queryDate(ctx, "from")
	if err != nil {
		return ledger.CashBook{}, err
	}
	to, err := queryDate(ctx, "to")
	if err != nil {
		return ledger.CashBook{}, err
	}
	book, err := s.deps.LedgerSvc.CashBook(ctx.Request().Context(), from, to)
	return book, errors.Wrap(err, "building cash book")
}

func (s *Server) cashBook(ctx echo.Context) error {
	book, err := s.bindCashBook(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, book)
}

func (s *Server) exportCashBook(ctx echo.Context) error {
	book, err := s.bindCashBook(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	title := s.deps.Conf.Academy.Name + " Cash Book"
	if err := ledger.ExportCashBook(book, title, &buf); err != nil {
		return errors.Wrap(err, "exporting cash book")
	}

	name := "cash-book.xlsx"
	if !book.From.IsZero() || !book.To.IsZero() {
		name = fmt.Sprintf("cash-book_%s_%s.xlsx", orAll(book.From), orAll(book.To))
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func orAll(d core.Date) string {
	if d.IsZero() {
		return "all"
	}
	return d.String()
}
