package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/agent"
	"github.com/ken-1511/howard-financial/internal/index"
	"github.com/ken-1511/howard-financial/internal/querylog"
	"github.com/ken-1511/howard-financial/internal/report"
	"github.com/ken-1511/howard-financial/internal/snapshot"
)

// EmptyIndexHint is returned with 409 when there is nothing to search.
const EmptyIndexHint = "the semantic index is empty; run `howard index` and reload"

// HeaderQueryID carries the query log ID of an answered query.
const HeaderQueryID = "X-Query-ID"

const (
	defaultListLimit = 100
	queryDateFormat  = "2006-01-02"
)

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if snap, err := s.holder.Current(); err == nil {
		resp.Loaded = true
		resp.Transactions = snap.Store.Len()
		resp.Vectors = snap.Index.Count()
	}
	return c.JSON(http.StatusOK, resp)
}

// current returns the published snapshot or a 503.
func (s *Server) current() (*snapshot.Snapshot, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "transactions not loaded yet")
	}
	return snap, nil
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid query request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}
	if req.TopK < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "top_k cannot be negative")
	}

	snap, err := s.current()
	if err != nil {
		s.metrics.queryErrors.WithLabelValues("not_loaded").Inc()
		return err
	}

	ctx := c.Request().Context()
	if s.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.agent.Answer(ctx, req.Query, snap.Store, snap.Index, req.TopK)
	if err != nil {
		return s.queryError(err)
	}
	s.metrics.queries.WithLabelValues(string(res.Kind)).Inc()
	s.metrics.queryDuration.WithLabelValues(string(res.Kind)).Observe(time.Since(start).Seconds())

	queryID := uuid.NewString()
	if s.queryLog != nil {
		if err := s.queryLog.Append(querylog.FromResult(s.now(), queryID, req.Query, res)); err != nil {
			s.logger.Warn("writing query log", zap.Error(err), zap.String("query_id", queryID))
		}
	}

	c.Response().Header().Set(HeaderQueryID, queryID)
	return c.JSON(http.StatusOK, toQueryResponse(queryID, res))
}

func (s *Server) queryError(err error) error {
	switch {
	case errors.Is(err, index.ErrEmptyIndex):
		s.metrics.queryErrors.WithLabelValues("empty_index").Inc()
		return echo.NewHTTPError(http.StatusConflict, EmptyIndexHint)
	case errors.Is(err, context.DeadlineExceeded):
		s.metrics.queryErrors.WithLabelValues("timeout").Inc()
		return echo.NewHTTPError(http.StatusGatewayTimeout, "query timed out")
	default:
		s.metrics.queryErrors.WithLabelValues("internal").Inc()
		s.logger.Error("query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}
}

func toQueryResponse(queryID string, res agent.Result) QueryResponse {
	resp := QueryResponse{QueryID: queryID, Kind: string(res.Kind), FollowUp: res.FollowUp}
	switch res.Kind {
	case agent.KindFormula:
		resp.Formula = &FormulaAnswer{
			Intent: res.Formula.Intent,
			Label:  res.Formula.Label,
			Value:  res.Formula.Value,
		}
	case agent.KindSearch:
		resp.Rows = make([]TransactionJSON, 0, len(res.Search.Rows))
		for _, r := range res.Search.Rows {
			row := toJSON(0, r.Transaction)
			score := r.Score
			row.Score = &score
			resp.Rows = append(resp.Rows, row)
		}
	}
	return resp
}

func (s *Server) handleTransactions(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}

	q := report.Query{
		Type:     c.QueryParam("type"),
		Category: c.QueryParam("category"),
	}
	if q.Limit, err = intParam(c, "limit", defaultListLimit); err != nil {
		return err
	}
	if q.Offset, err = intParam(c, "offset", 0); err != nil {
		return err
	}
	if q.Start, err = dateParam(c, "start_date"); err != nil {
		return err
	}
	if q.End, err = dateParam(c, "end_date"); err != nil {
		return err
	}

	page := report.List(snap.Store, q)
	resp := TransactionsResponse{
		Transactions: make([]TransactionJSON, 0, len(page.Entries)),
		Total:        page.Total,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
	for _, e := range page.Entries {
		resp.Transactions = append(resp.Transactions, toJSON(e.ID, e.Transaction))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTransaction(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "transaction id must be an integer")
	}
	t, ok := report.Get(snap.Store, id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "transaction not found")
	}
	return c.JSON(http.StatusOK, toJSON(id, t))
}

func (s *Server) handleSummary(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	sum := report.Summarize(snap.Store)
	resp := SummaryResponse{
		TotalIncome:      sum.TotalIncome.InexactFloat64(),
		TotalExpenses:    sum.TotalExpenses.InexactFloat64(),
		NetIncome:        sum.NetIncome.InexactFloat64(),
		TransactionCount: sum.TransactionCount,
		Categories:       make(map[string]float64, len(sum.Categories)),
		MonthlyTrends:    make([]MonthJSON, 0, len(sum.MonthlyTrends)),
	}
	for _, ct := range sum.Categories {
		resp.Categories[ct.Category] = ct.Amount.InexactFloat64()
	}
	for _, m := range sum.MonthlyTrends {
		resp.MonthlyTrends = append(resp.MonthlyTrends, MonthJSON{Month: m.Month, Amount: m.Amount.InexactFloat64()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCategories(c echo.Context) error {
	return s.distinct(c, "categories", report.Categories)
}

func (s *Server) handleTypes(c echo.Context) error {
	return s.distinct(c, "types", report.Types)
}

func (s *Server) handleAccounts(c echo.Context) error {
	return s.distinct(c, "accounts", report.Accounts)
}

func (s *Server) distinct(c echo.Context, key string, field report.FieldFunc) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{key: report.Distinct(snap.Store, field)})
}

func (s *Server) handleReload(c echo.Context) error {
	if err := s.holder.Reload(c.Request().Context()); err != nil {
		s.logger.Error("reload failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	snap, err := s.current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReloadResponse{
		Status:       "reloaded",
		Transactions: snap.Store.Len(),
		Vectors:      snap.Index.Count(),
		LoadedAt:     snap.LoadedAt,
	})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return v, nil
}

func dateParam(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(queryDateFormat, raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+" must be YYYY-MM-DD")
	}
	return t, nil
}
