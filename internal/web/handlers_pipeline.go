package web

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/datasweep/internal/core"
	"github.com/JonMunkholm/datasweep/internal/logging"
	"github.com/JonMunkholm/datasweep/internal/web/templates"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

// readUploads parses the multipart body and returns the files under field
// in upload order.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request, field string) ([]core.FileUnit, error) {
	maxFile := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*int64(s.cfg.Upload.MaxFiles)+(1<<20))

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request body too large", core.ErrFileTooLarge)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrBadRequest, err)
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, core.ErrNoFile
	}
	if len(headers) > s.cfg.Upload.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, at most %d allowed", core.ErrTooManyFiles, len(headers), s.cfg.Upload.MaxFiles)
	}

	units := make([]core.FileUnit, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxFile {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", core.ErrFileTooLarge, fh.Filename, fh.Size, maxFile)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxFile+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		if int64(len(data)) > maxFile {
			return nil, fmt.Errorf("%w: %s", core.ErrFileTooLarge, fh.Filename)
		}
		units = append(units, core.NewFileUnit(fh.Filename, data))
	}
	return units, nil
}

// parsePlan reads the cleaning, projection and export fields shared by the
// pipeline endpoints. Each "columns" value names one column verbatim;
// "columns_csv" holds a single CSV record of names, so a name containing a
// comma is quoted.
func (s *Server) parsePlan(r *http.Request, defaultFormat core.Format) (core.Plan, error) {
	plan := core.Plan{
		Format:         defaultFormat,
		Filename:       strings.TrimSpace(r.FormValue("filename")),
		PreviewRows:    s.cfg.Pipeline.PreviewRows,
		SummaryColumns: s.cfg.Pipeline.SummaryColumns,
	}

	for _, name := range splitList(r.Form["clean"]) {
		op, err := core.ParseCleaningOp(name)
		if err != nil {
			return plan, err
		}
		plan.Clean = append(plan.Clean, op)
	}

	for _, name := range r.Form["columns"] {
		if name != "" {
			plan.Columns = append(plan.Columns, name)
		}
	}
	if v := r.FormValue("columns_csv"); strings.TrimSpace(v) != "" {
		cols, err := parseColumnList(v)
		if err != nil {
			return plan, err
		}
		plan.Columns = append(plan.Columns, cols...)
	}

	if f := strings.TrimSpace(r.FormValue("format")); f != "" {
		format, err := core.ParseFormat(f)
		if err != nil {
			return plan, fmt.Errorf("%w: format: %w", core.ErrBadRequest, err)
		}
		plan.Format = format
	}

	if v := r.FormValue("preview"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return plan, fmt.Errorf("%w: preview must be a positive number", core.ErrBadRequest)
		}
		plan.PreviewRows = n
	}
	return plan, nil
}

// parseColumnList reads one CSV record of column names. Quoting follows
// RFC 4180 and spaces after a delimiter are dropped.
func parseColumnList(v string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(v))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	record, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: columns_csv: %v", core.ErrBadRequest, err)
	}
	if _, err := cr.Read(); err != io.EOF {
		return nil, fmt.Errorf("%w: columns_csv must be a single line", core.ErrBadRequest)
	}
	cols := make([]string, 0, len(record))
	for _, name := range record {
		if name != "" {
			cols = append(cols, name)
		}
	}
	return cols, nil
}

// splitList flattens repeated form values and comma-separated lists.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// run carries units through plan under the upload timeout.
func (s *Server) run(r *http.Request, units []core.FileUnit, plan core.Plan) ([]core.FileResult, error) {
	ctx, cancel := context.WithTimeout(WithRequestMetadata(r.Context(), r), s.cfg.Upload.Timeout)
	defer cancel()

	jobs := make([]core.Job, len(units))
	for i, u := range units {
		jobs[i] = core.Job{Unit: u, Plan: plan}
	}
	return s.runner.Run(ctx, jobs)
}

// FileResponse is one file's result with its error mapped for clients.
type FileResponse struct {
	core.FileResult
	Error *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse lists file results in upload order.
type BatchResponse struct {
	Files  []FileResponse `json:"files"`
	Failed int            `json:"failed"`
}

func toBatchResponse(results []core.FileResult) BatchResponse {
	resp := BatchResponse{Files: make([]FileResponse, len(results))}
	for i, res := range results {
		resp.Files[i] = FileResponse{FileResult: res}
		if res.Err != nil {
			msg := core.MapError(res.Err)
			resp.Files[i].Error = &ErrorResponse{
				Error:   msg.Message,
				Message: msg.Message,
				Action:  msg.Action,
				Code:    msg.Code,
			}
			resp.Failed++
		}
	}
	return resp
}

// handleInspect decodes every uploaded file and returns its preview,
// column classification and numeric summary. Nothing is exported.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	units, err := s.readUploads(w, r, "files")
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	plan, err := s.parsePlan(r, core.FormatUnknown)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	plan.Format = core.FormatUnknown

	results, err := s.run(r, units, plan)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.InspectResults(results).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render inspect results", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(results))
}

// handleConvert runs one file through the plan and responds with the
// exported bytes as an attachment. Cleaning warnings are listed in the
// X-Cleaning-Warnings header.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	units, err := s.readUploads(w, r, "file")
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if len(units) != 1 {
		s.respondError(w, r, fmt.Errorf("%w: convert takes exactly one file", core.ErrBadRequest), 0)
		return
	}
	plan, err := s.parsePlan(r, core.FormatCSV)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	results, err := s.run(r, units, plan)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	res := results[0]
	if res.Err != nil {
		s.respondError(w, r, res.Err, 0)
		return
	}

	file := res.Export
	if len(res.Warnings) > 0 {
		w.Header().Set("X-Cleaning-Warnings", strings.Join(res.Warnings, "; "))
	}
	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		logging.FromContext(r.Context()).Warn("write export", "file", file.Filename, "error", err)
	}
}

// handleBatch runs every uploaded file through the same plan. Exports are
// returned base64-encoded in the JSON body. Without a format the files are
// only inspected.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	units, err := s.readUploads(w, r, "files")
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	plan, err := s.parsePlan(r, core.FormatUnknown)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	results, err := s.run(r, units, plan)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(results))
}
