package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"booktrack/internal/blob"
	"booktrack/internal/exchange"
	"booktrack/internal/scan"
	"booktrack/pkg/domain"
)

// DefaultImportLimit caps uploaded snapshots and rosters.
const DefaultImportLimit = 32 << 20

type actionRequest struct {
	Type    domain.Kind     `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

type scanRequest struct {
	Code string `json:"code" binding:"required"`
}

type manualBookRequest struct {
	ISBN  string `json:"isbn" binding:"required"`
	Title string `json:"title"`
}

// statusFor maps domain errors onto HTTP status codes. Persistence failures and
// anything unrecognised are server errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInUse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMalformedImport):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// limitBody makes reads past the handler's import limit fail with *http.MaxBytesError.
func (h *Handler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
}

// readStatus maps a failure to read an upload to 413 when the body was too large.
func readStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (h *Handler) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func writeSnapshot(c *gin.Context, status int, snap domain.Snapshot) {
	payload, err := domain.EncodeSnapshot(snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, "application/json; charset=utf-8", payload)
}

func (h *Handler) getState(c *gin.Context) {
	writeSnapshot(c, http.StatusOK, h.store.Snapshot())
}

func (h *Handler) postAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	action, err := domain.DecodeAction(req.Type, req.Payload)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrValidation) {
			status = http.StatusUnprocessableEntity
		}
		h.fail(c, status, err)
		return
	}
	var snap domain.Snapshot
	if imp, ok := action.(domain.ImportState); ok {
		snap, err = h.store.Import(c.Request.Context(), imp.Snapshot)
	} else {
		snap, err = h.store.Dispatch(c.Request.Context(), action)
	}
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	writeSnapshot(c, http.StatusOK, snap)
}

func (h *Handler) postScan(c *gin.Context) {
	flow, err := scan.ParseFlow(c.Param("flow"))
	if err != nil {
		h.fail(c, http.StatusNotFound, err)
		return
	}
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	out := h.resolver.HandleDecode(c.Request.Context(), flow, req.Code)
	status := http.StatusOK
	if out.Kind == scan.OutcomeFailed {
		status = http.StatusInternalServerError
	}
	c.JSON(status, out)
}

func (h *Handler) postManualBook(c *gin.Context) {
	var req manualBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	courseID := c.Param("courseId")
	if _, ok := h.store.Snapshot().FindCourse(courseID); !ok {
		h.fail(c, http.StatusNotFound, fmt.Errorf("course %q not found", courseID))
		return
	}
	out, err := h.resolver.ConfirmManualTitle(c.Request.Context(), courseID, req.ISBN, req.Title)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) exportState(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="booktrack-state.json"`)
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	if err := exchange.WriteJSON(c.Writer, h.store.Snapshot()); err != nil {
		h.logger.Error("export state failed", "error", err)
	}
}

func (h *Handler) exportReport(c *gin.Context) {
	format, err := exchange.ParseFormat(c.Query("format"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	rows := exchange.ReportRows(h.store.Snapshot())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="booktrack-report.%s"`, format))
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)
	if err := exchange.WriteReport(c.Writer, format, rows); err != nil {
		h.logger.Error("export report failed", "format", format, "error", err)
	}
}

func (h *Handler) importState(c *gin.Context) {
	h.limitBody(c)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, readStatus(err), fmt.Errorf("read body: %w", err))
		return
	}
	snap, err := h.store.ImportJSON(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	writeSnapshot(c, http.StatusOK, snap)
}

func (h *Handler) importRoster(c *gin.Context) {
	classID := c.Param("classId")
	if c.Request.ContentLength > h.maxBody {
		h.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", h.maxBody))
		return
	}
	h.limitBody(c)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.fail(c, readStatus(err), fmt.Errorf("missing upload: %w", err))
		return
	}
	defer func() { _ = file.Close() }()

	names, err := exchange.ReadRoster(file)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	created, err := h.service.ImportRoster(c.Request.Context(), classID, names)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	if created == nil {
		created = []domain.Student{}
	}
	h.logger.Info("roster imported", "class", classID, "file", header.Filename, "students", len(created))
	c.JSON(http.StatusOK, gin.H{
		"classId":       classID,
		"importedCount": len(created),
		"students":      created,
	})
}

func (h *Handler) reset(c *gin.Context) {
	snap, err := h.store.Reset(c.Request.Context())
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	writeSnapshot(c, http.StatusOK, snap)
}

func (h *Handler) archiveReport(c *gin.Context) {
	format, err := exchange.ParseFormat(c.Query("format"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	info, err := h.archive.Archive(c.Request.Context(), format, exchange.ReportRows(h.store.Snapshot()))
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	h.logger.Info("report archived", "key", info.Key, "size", info.Size)
	c.JSON(http.StatusCreated, info)
}

func (h *Handler) listReports(c *gin.Context) {
	infos, err := h.archive.List(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	if infos == nil {
		infos = []blob.Info{}
	}
	c.JSON(http.StatusOK, infos)
}

func (h *Handler) downloadReport(c *gin.Context) {
	info, rc, err := h.archive.Open(c.Request.Context(), c.Param("name"))
	if errors.Is(err, blob.ErrNotFound) {
		h.fail(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	defer func() { _ = rc.Close() }()
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, path.Base(info.Key)),
	})
}
