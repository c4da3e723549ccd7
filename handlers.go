package wximport

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/wximport/importer"
	"github.com/eringen/wximport/wxr"
)

const maxExportSize = 64 << 20 // 64MB

// uploadResponse is the preview returned to the operator: the full parsed
// candidate list with each candidate's classified fate under the chosen
// policy. Selection happens client-side; nothing is persisted here.
type uploadResponse struct {
	Total      int                `json:"total"`
	Candidates []previewCandidate `json:"candidates"`
}

type previewCandidate struct {
	wxr.Candidate
	Duplicate bool            `json:"duplicate"`
	Action    importer.Action `json:"action"`
}

// executeRequest carries the operator's selected subset back for execution.
// The executor re-checks duplicates against live store state, so a preview
// that has gone stale cannot corrupt anything.
type executeRequest struct {
	Policy     string          `json:"policy"`
	Candidates []wxr.Candidate `json:"candidates"`
}

func (a *App) handleImportUpload(c echo.Context) error {
	if !IsAdmin(c) {
		return apiUnauthorized(c)
	}

	file, err := c.FormFile("export")
	if err != nil {
		return apiError(c, http.StatusBadRequest, "no export file provided")
	}
	if file.Size > maxExportSize {
		return apiError(c, http.StatusBadRequest, "export file too large")
	}
	policy, err := importer.ParsePolicy(c.FormValue("policy"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxExportSize+1))
	if err != nil {
		return err
	}

	// A document without a recognizable channel is a whole-file format
	// error; everything below field level degrades inside the parser.
	candidates, err := wxr.Parse(data)
	if err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}

	decisions, err := importer.Resolve(candidates, policy, a.Store)
	if err != nil {
		return err
	}

	resp := uploadResponse{
		Total:      len(candidates),
		Candidates: make([]previewCandidate, 0, len(decisions)),
	}
	for _, d := range decisions {
		resp.Candidates = append(resp.Candidates, previewCandidate{
			Candidate: d.Candidate,
			Duplicate: d.Action != importer.ActionInsert,
			Action:    d.Action,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *App) handleImportExecute(c echo.Context) error {
	if !IsAdmin(c) {
		return apiUnauthorized(c)
	}
	if !a.importLimiter.Allow(c.RealIP()) {
		return apiError(c, http.StatusTooManyRequests, "too many imports, try again later")
	}

	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid request body")
	}
	policy, err := importer.ParsePolicy(req.Policy)
	if err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}

	outcome := a.Executor.Run(c.Request().Context(), req.Candidates, policy, a.Config.AuthorName)
	return c.JSON(http.StatusOK, outcome)
}

func (a *App) handleContentList(c echo.Context) error {
	if !IsAdmin(c) {
		return apiUnauthorized(c)
	}
	records, err := a.Store.List()
	if err != nil {
		return err
	}
	if records == nil {
		records = []importer.Record{}
	}
	return c.JSON(http.StatusOK, records)
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func apiUnauthorized(c echo.Context) error {
	return apiError(c, http.StatusUnauthorized, "unauthorized")
}

func apiError(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}
