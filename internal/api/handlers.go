package api

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hourlysheet/app"
	"hourlysheet/domain/activity"
	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"
	"hourlysheet/ports"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": s.service.ModelStatus().State})
}

func (s *Server) filters(c *gin.Context) (production.Filters, bool) {
	var in app.FilterInput
	if err := c.ShouldBindQuery(&in); err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return production.Filters{}, false
	}
	f, err := in.Filters()
	if err != nil {
		s.respondError(c, err)
		return f, false
	}
	return f, true
}

func (s *Server) bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		s.respondError(c, errors.InvalidInput(fmt.Sprintf("invalid JSON body: %v", err)))
		return false
	}
	return true
}

func (s *Server) handleListRecords(c *gin.Context) {
	f, ok := s.filters(c)
	if !ok {
		return
	}
	records, err := s.service.Records(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (s *Server) handleAddRecord(c *gin.Context) {
	var in app.RecordInput
	if !s.bindJSON(c, &in) {
		return
	}
	rec, err := in.Record()
	if err != nil {
		s.respondError(c, err)
		return
	}
	stored, err := s.service.AddRecord(c.Request.Context(), rec)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

type importRequest struct {
	Path string `json:"path"`
}

// handleImport accepts either a multipart upload in field "file" or a JSON
// body naming a relative server-side path. With neither, the configured
// import file is used.
func (s *Server) handleImport(c *gin.Context) {
	path := s.options.ImportFile

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		upload, err := c.FormFile("file")
		if err != nil {
			s.respondError(c, errors.InvalidInput("multipart import needs a \"file\" field"))
			return
		}
		dir, err := os.MkdirTemp("", "hourlysheet-import-")
		if err != nil {
			s.respondError(c, errors.Wrap(err, "failed to stage upload"))
			return
		}
		defer os.RemoveAll(dir)

		path = filepath.Join(dir, filepath.Base(upload.Filename))
		if err := c.SaveUploadedFile(upload, path); err != nil {
			s.respondError(c, errors.Wrap(err, "failed to stage upload"))
			return
		}
	} else if c.Request.ContentLength != 0 {
		var req importRequest
		if !s.bindJSON(c, &req) {
			return
		}
		if req.Path != "" {
			if !filepath.IsLocal(req.Path) {
				s.respondError(c, errors.InvalidInput("import path must be relative and stay inside the working or import directory"))
				return
			}
			path = filepath.Clean(req.Path)
		}
	}

	if path == "" {
		s.respondError(c, errors.InvalidInput("no import file given"))
		return
	}

	result, err := s.service.Import(c.Request.Context(), path)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleExport(c *gin.Context) {
	format, err := app.ParseExportFormat(c.Query("format"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	f, ok := s.filters(c)
	if !ok {
		return
	}

	// buffered so a failure can still produce an error status
	var buf bytes.Buffer
	if _, err := s.service.Export(c.Request.Context(), &buf, format, f); err != nil {
		s.respondError(c, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == app.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"hourly_sheet.%s\"", format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) handleStats(c *gin.Context) {
	f, ok := s.filters(c)
	if !ok {
		return
	}
	report, err := s.service.Report(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if !s.bindJSON(c, &req) {
		return
	}
	answer, err := s.service.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"intent": answer.Intent,
		"text":   answer.Text,
		"html":   answer.HTML(),
		"data":   answer.Data,
	})
}

func (s *Server) handleModelStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.ModelStatus())
}

func (s *Server) handleFit(c *gin.Context) {
	model, err := s.service.FitModel(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (s *Server) handleRisk(c *gin.Context) {
	p, err := s.service.PredictDowntime(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleTarget(c *gin.Context) {
	suggestion, err := s.service.SuggestTarget(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

type issueRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleIssue(c *gin.Context) {
	var req issueRequest
	if !s.bindJSON(c, &req) {
		return
	}
	analysis, err := s.service.AnalyzeIssue(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleAnomalies(c *gin.Context) {
	flags, err := s.service.Anomalies(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"anomalies": flags, "count": len(flags)})
}

func (s *Server) handleHistory(c *gin.Context) {
	filter := ports.LedgerFilter{Action: activity.Action(c.Query("action"))}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			s.respondError(c, errors.InvalidInput("limit must be between 1 and 500"))
			return
		}
		filter.Limit = limit
	}

	entries, err := s.service.History(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
