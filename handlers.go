package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/welddesk/reports_backend/config"
	"github.com/welddesk/reports_backend/models"
	"github.com/welddesk/reports_backend/models/reports"
	"github.com/welddesk/reports_backend/utils"
	"github.com/welddesk/reports_backend/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func statusForError(err error) int {
	switch {
	case errors.Is(err, utils.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, utils.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, utils.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEditInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// journalStateResponse is the projection payload the client renders.
type journalStateResponse struct {
	Reports    []models.Report     `json:"reports"`
	TotalPages int                 `json:"totalPages"`
	Page       int                 `json:"page"`
	Filters    models.ColumnFilter `json:"filters"`
	SearchTerm string              `json:"searchTerm"`
	LastError  string              `json:"lastError,omitempty"`
	Selected   int                 `json:"selectedCount"`
	Editing    string              `json:"editingId,omitempty"`
}

func journalResponse(hub *workflow.JournalHub, state models.JournalState) journalStateResponse {
	page, totalPages := state.Projection()
	editingId, _ := hub.Session().EditingId()
	return journalStateResponse{
		Reports:    page,
		TotalPages: totalPages,
		Page:       state.Page,
		Filters:    state.Filters,
		SearchTerm: state.SearchTerm,
		LastError:  state.LastError,
		Selected:   len(state.SelectedReports()),
		Editing:    editingId,
	}
}

func getJournalHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, journalResponse(hub, hub.State()))
	}
}

type filterRequest struct {
	Column string `json:"column" binding:"required,journalcolumn"`
	Value  string `json:"value"`
}

func setFilterHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req filterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		state := hub.Reduce(func(s models.JournalState) models.JournalState {
			if req.Value == "" {
				return s.ClearFilter(req.Column)
			}
			return s.SetFilter(req.Column, req.Value)
		})
		c.JSON(http.StatusOK, journalResponse(hub, state))
	}
}

func clearFilterHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		column := c.Param("column")
		state := hub.Reduce(func(s models.JournalState) models.JournalState {
			return s.ClearFilter(column)
		})
		c.JSON(http.StatusOK, journalResponse(hub, state))
	}
}

func filterValuesHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		column := c.Param("column")
		state := hub.State()
		c.JSON(http.StatusOK, gin.H{
			"column": column,
			"values": models.UniqueColumnValues(state.Reports, column),
		})
	}
}

type searchRequest struct {
	Term string `json:"term"`
}

func setSearchHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		state := hub.Reduce(func(s models.JournalState) models.JournalState {
			return s.SetSearch(req.Term)
		})
		c.JSON(http.StatusOK, journalResponse(hub, state))
	}
}

type pageRequest struct {
	Action string `json:"action" binding:"omitempty,oneof=first prev next last"`
	Number int    `json:"number"`
}

func setPageHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		state := hub.Reduce(func(s models.JournalState) models.JournalState {
			switch req.Action {
			case "first":
				return s.FirstPage()
			case "prev":
				return s.PrevPage()
			case "next":
				return s.NextPage()
			case "last":
				return s.LastPage()
			}
			if req.Number > 0 {
				return s.JumpToReportNumber(req.Number)
			}
			return s
		})
		c.JSON(http.StatusOK, journalResponse(hub, state))
	}
}

func toggleSelectHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		state := hub.Reduce(func(s models.JournalState) models.JournalState {
			return s.ToggleSelected(id)
		})
		c.JSON(http.StatusOK, journalResponse(hub, state))
	}
}

func openSelectedHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		reportId, ok := models.OpenSelected(hub.State().SelectedReports())
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reportId": reportId})
	}
}

func exportJournalHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		state := hub.State()

		scope := c.DefaultQuery("scope", "selected")
		var reportList []models.Report
		var filename string
		switch scope {
		case "all":
			reportList = state.Reports
			filename = "journal_reports.xlsx"
		case "selected":
			reportList = state.SelectedReports()
			filename = "selected_reports.xlsx"
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be selected or all"})
			return
		}

		data, err := reports.GenerateJournalBytes(c.Request.Context(), reportList)
		if err != nil {
			config.LogError(logger, "handlers.go", "exportJournalHandler", "reports.GenerateJournalBytes", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate export"})
			return
		}

		// Keep a copy in the export bucket when one is configured.
		if utils.ExportBucket() != "" {
			objectName := fmt.Sprintf("exports/%s-%s", uuid.NewString(), filename)
			url, err := utils.SaveExportToGCS(c.Request.Context(), objectName, data)
			if err != nil {
				config.LogError(logger, "handlers.go", "exportJournalHandler", "utils.SaveExportToGCS", objectName, err)
			} else {
				c.Header("X-Export-Url", url)
			}
		}

		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}

func deleteSelectedHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, failed, err := hub.DeleteSelected(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		failedMsgs := map[string]string{}
		for id, ferr := range failed {
			failedMsgs[id] = ferr.Error()
		}
		c.JSON(http.StatusOK, gin.H{
			"deleted": deleted,
			"failed":  failedMsgs,
		})
	}
}

func beginEditHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.Session().BeginEdit(c.Request.Context(), c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type fieldChangeRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

func fieldChangedHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fieldChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := hub.Session().FieldChanged(req.Field, req.Value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func saveEditHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.Session().Save(c.Request.Context(), hub.Store()); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func cancelEditHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.Session().Cancel()
		c.Status(http.StatusNoContent)
	}
}

func editStateHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		editingId, editing := hub.Session().EditingId()
		c.JSON(http.StatusOK, gin.H{
			"editing":  editing,
			"reportId": editingId,
			"pending":  hub.Session().PendingFields(),
		})
	}
}

// methodDetail is the detail-view rendering of one inspection method grid.
type methodDetail struct {
	Method    string      `json:"method"`
	Performed bool        `json:"performed"`
	Rows      [][4]string `json:"rows,omitempty"`
	MinValue  string      `json:"minValue,omitempty"`
	MaxValue  string      `json:"maxValue,omitempty"`
}

func getReportHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := hub.Store().GetReport(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}

		details := make([]methodDetail, 0, len(models.MethodKeys))
		for _, method := range models.MethodKeys {
			dp := report.DataPoint(method)
			d := methodDetail{Method: method, Performed: dp.Performed()}
			for i := 0; i < dp.RowCount(); i++ {
				d.Rows = append(d.Rows, dp.Row(i))
			}
			if method == models.MethodYZT {
				if min, max, ok := dp.ThicknessRange(); ok {
					d.MinValue = min.String()
					d.MaxValue = max.String()
				}
			}
			details = append(details, d)
		}

		c.JSON(http.StatusOK, gin.H{
			"report":  report,
			"methods": details,
		})
	}
}

func editReportHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.ReportPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.EditReport(c.Request.Context(), hub.Store(), hub.Policy(), c.Param("id"), patch); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func deleteReportHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.DeleteReportById(c.Request.Context(), hub.Store(), hub.Policy(), c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func renumberHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		email, ok := utils.GetUserEmailFromContext(ctx)
		if !ok || email == "" {
			abortWithError(c, utils.ErrUnauthenticated)
			return
		}
		if !hub.Policy().IsAdmin(email) {
			abortWithError(c, utils.ErrPermissionDenied)
			return
		}

		updated, err := workflow.RenumberReports(ctx, hub.Store(), hub.CustomerFilter())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

// pushEnvelope is the Pub/Sub push delivery wrapper.
type pushEnvelope struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func renumberPubSubHandler(hub *workflow.JournalHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "handlers.go", "renumberPubSubHandler", "io.ReadAll", nil, err)
			// Malformed request body: ack/drop to avoid infinite retries.
			c.Status(http.StatusNoContent)
			return
		}

		var envelope pushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			config.LogError(logger, "handlers.go", "renumberPubSubHandler", "json.Unmarshal envelope", string(body), err)
			c.Status(http.StatusNoContent)
			return
		}

		var msg config.RenumberMessage
		if err := json.Unmarshal(envelope.Message.Data, &msg); err != nil {
			config.LogError(logger, "handlers.go", "renumberPubSubHandler", "json.Unmarshal message", envelope.Message.ID, err)
			c.Status(http.StatusNoContent)
			return
		}

		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), msg.CorrelationId)
		start := time.Now()
		updated, err := workflow.RenumberReports(ctx, hub.Store(), msg.CustomerFilter)
		if err != nil {
			// Transient store failure: nack so Pub/Sub redelivers.
			c.Status(http.StatusInternalServerError)
			return
		}

		logger.WithField("module", "handlers.go").
			WithField("updated", updated).
			WithField("elapsed", time.Since(start).String()).
			Info("renumber pass completed")
		c.Status(http.StatusNoContent)
	}
}
