package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/njchilds90/derivrecon"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) reconstruct(c *gin.Context) {
	var body reconstructRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortErr(c, &derivrecon.RequestError{Field: "body", Reason: err.Error()})
		return
	}
	resp, err := s.run(c.Request.Context(), body)
	if err != nil {
		abortErr(c, err)
		return
	}
	resp.RequestID = requestID(c)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) batch(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortErr(c, &derivrecon.RequestError{Field: "body", Reason: err.Error()})
		return
	}
	if n := len(body.Items); n > s.cfg.Recon.MaxBatch {
		abortErr(c, &derivrecon.RequestError{Field: "items", Reason: fmt.Sprintf("%d items, at most %d allowed", n, s.cfg.Recon.MaxBatch)})
		return
	}

	items := make([]batchItem, len(body.Items))
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(s.cfg.Recon.BatchConcurrency)
	for i, req := range body.Items {
		i, req := i, req
		g.Go(func() error {
			items[i] = batchItem{Index: i, Status: http.StatusOK}
			resp, err := s.run(ctx, req)
			if err != nil {
				status, kind := statusOf(err)
				items[i].Status = status
				items[i].Error = &errorResponse{Error: err.Error(), Kind: kind}
				return nil
			}
			items[i].Result = resp
			return nil
		})
	}
	_ = g.Wait()

	out := batchResponse{RequestID: requestID(c), Items: items}
	for _, it := range items {
		if it.Error != nil {
			out.Failed++
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) tool(c *gin.Context) {
	var req derivrecon.ToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortErr(c, &derivrecon.RequestError{Field: "body", Reason: err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Recon.Timeout)
	defer cancel()
	c.JSON(http.StatusOK, derivrecon.HandleToolCallContext(ctx, req))
}

func (s *Server) schema(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(derivrecon.MCPToolSpec()))
}

type outcome struct {
	resp *reconstructResponse
	err  error
}

// run reconstructs and samples one request within the recon timeout. The
// work happens on its own goroutine so a slow request still answers on
// time.
func (s *Server) run(ctx context.Context, body reconstructRequest) (*reconstructResponse, error) {
	req, w, n, err := s.prepare(body)
	if err != nil {
		s.metrics.ObserveReconstruct(modeLabel(body.Mode), string(derivrecon.KindOf(err)), 0)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Recon.Timeout)
	defer cancel()
	start := time.Now()

	done := make(chan outcome, 1)
	go func() {
		res, err := derivrecon.ReconstructContext(ctx, req)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		series, err := res.Sample(w.XMin, w.XMax, n)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		s.metrics.ObserveInvalidPoints(series.InvalidCount())
		done <- outcome{resp: responseOf(res, series, w)}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: fmt.Errorf("reconstruction exceeded %s: %w", s.cfg.Recon.Timeout, ctx.Err())}
	}
	_, kind := statusOf(out.err)
	if out.err == nil {
		kind = ""
	}
	s.metrics.ObserveReconstruct(req.Mode.String(), kind, time.Since(start))
	if out.err != nil {
		s.log.Debug("reconstruction failed", "input", body.Derivative, "kind", kind, "err", out.err)
	}
	return out.resp, out.err
}

// prepare turns a request body into a core Request plus window and sample
// count, applying the configured defaults and limits.
func (s *Server) prepare(body reconstructRequest) (derivrecon.Request, window, int, error) {
	rc := s.cfg.Recon
	if len(body.Derivative) > rc.MaxExprLen {
		return derivrecon.Request{}, window{}, 0, &derivrecon.ParseError{
			Input:  truncate(body.Derivative, rc.MaxExprLen) + "...",
			Reason: fmt.Sprintf("expression longer than %d characters", rc.MaxExprLen),
		}
	}
	mode := derivrecon.FirstOrder
	if body.Mode != "" {
		m, err := derivrecon.ParseMode(body.Mode)
		if err != nil {
			return derivrecon.Request{}, window{}, 0, err
		}
		mode = m
	}
	variable := body.Var
	if variable == "" {
		variable = rc.Variable
	}
	w := window{XMin: rc.XMin, XMax: rc.XMax}
	if body.XMin != nil {
		w.XMin = *body.XMin
	}
	if body.XMax != nil {
		w.XMax = *body.XMax
	}
	if !(w.XMin < w.XMax) {
		return derivrecon.Request{}, window{}, 0, &derivrecon.RequestError{Field: "xmin", Reason: "must be less than xmax"}
	}
	n := rc.Samples
	if body.Samples != 0 {
		n = body.Samples
	}
	if n > rc.MaxSamples {
		return derivrecon.Request{}, window{}, 0, &derivrecon.RequestError{Field: "samples", Reason: fmt.Sprintf("at most %d", rc.MaxSamples)}
	}
	req := derivrecon.Request{
		Derivative: body.Derivative,
		Mode:       mode,
		X0:         *body.X0,
		Y0:         *body.Y0,
		V0:         body.V0,
		Var:        variable,
	}
	return req, w, n, nil
}

func modeLabel(s string) string {
	if m, err := derivrecon.ParseMode(s); err == nil {
		return m.String()
	}
	if s == "" {
		return derivrecon.FirstOrder.String()
	}
	return "unknown"
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
