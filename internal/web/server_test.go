package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datasweep/internal/config"
	"github.com/JonMunkholm/datasweep/internal/core"
)

const scenarioCSV = "a,b\n1,\n1,5\n2,5\n"

type upload struct {
	name string
	data string
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *core.MemoryAuditLog) {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	audit := core.NewMemoryAuditLog(100)
	s := NewServer(cfg, audit)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, audit
}

// multipartBody encodes files under field plus extra form values.
func multipartBody(t *testing.T, field string, files []upload, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(t, err)
	}
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func post(t *testing.T, s *Server, path, field string, files []upload, fields map[string][]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, field, files, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

type fileJSON struct {
	Name     string   `json:"name"`
	Stage    string   `json:"stage"`
	Rows     int      `json:"rows"`
	Warnings []string `json:"warnings"`
	Preview  *struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	} `json:"preview"`
	Summary []struct {
		Name   string     `json:"name"`
		Values []*float64 `json:"values"`
	} `json:"summary"`
	Export *core.EncodedFile `json:"export"`
	Error  *ErrorResponse    `json:"error"`
}

type batchJSON struct {
	Files  []fileJSON `json:"files"`
	Failed int        `json:"failed"`
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="files"`)
	assert.Contains(t, rec.Body.String(), "remove_duplicates")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeJSON[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 5, health.Uploads.MaxConcurrent)
}

func TestInspect_JSON(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := post(t, s, "/api/inspect", "files", []upload{
		{"data.csv", scenarioCSV},
		{"report.pdf", "%PDF-1.4"},
		{"empty.csv", ""},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[batchJSON](t, rec)
	require.Len(t, resp.Files, 3)
	assert.Equal(t, 2, resp.Failed)

	data := resp.Files[0]
	assert.Equal(t, "data.csv", data.Name)
	assert.Nil(t, data.Error)
	assert.Equal(t, 3, data.Rows)
	require.NotNil(t, data.Preview)
	assert.Equal(t, []string{"a", "b"}, data.Preview.Columns)
	assert.Nil(t, data.Preview.Rows[0][1], "missing cells encode as null")
	require.Len(t, data.Summary, 2)
	assert.Nil(t, data.Export)

	require.NotNil(t, resp.Files[1].Error)
	assert.Equal(t, "FMT001", resp.Files[1].Error.Code)
	require.NotNil(t, resp.Files[2].Error)
	assert.Equal(t, "FILE005", resp.Files[2].Error.Code)
}

func TestInspect_HTMX(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body, ct := multipartBody(t, "files", []upload{{"<b>.csv", "name\n<script>\n"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/inspect", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
}

func TestInspect_NoFiles(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := post(t, s, "/api/inspect", "files", nil, map[string][]string{"clean": {"dedupe"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decodeJSON[ErrorResponse](t, rec).Code)
}

func TestConvert_CSV(t *testing.T) {
	s, audit := newTestServer(t, nil)
	rec := post(t, s, "/api/convert", "file", []upload{{"data.csv", scenarioCSV}}, map[string][]string{
		"clean":   {"remove_duplicates", "fill_missing"},
		"columns": {"b"},
		"format":  {"csv"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "b\n5\n5\n5\n", rec.Body.String())
	assert.Equal(t, core.MIMETypeCSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=data.csv`, rec.Header().Get("Content-Disposition"))

	entries, err := audit.Recent(context.Background(), 0)
	require.NoError(t, err)
	actions := make([]core.AuditAction, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.Equal(t, []core.AuditAction{
		core.ActionBatch, core.ActionExport, core.ActionProject,
		core.ActionClean, core.ActionClean, core.ActionDecode,
	}, actions)
	assert.Equal(t, "192.0.2.1", entries[0].IPAddress)
}

func TestConvert_Excel(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := post(t, s, "/api/convert", "file", []upload{{"data.csv", scenarioCSV}}, map[string][]string{
		"format":   {"excel"},
		"filename": {"clean.xlsx"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.MIMETypeExcel, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "clean.xlsx")

	back, err := core.Decode(rec.Body.Bytes(), "clean.xlsx")
	require.NoError(t, err)
	orig, err := core.Decode([]byte(scenarioCSV), "data.csv")
	require.NoError(t, err)
	assert.True(t, orig.Equal(back))
}

func TestConvert_ColumnNamesWithCommas(t *testing.T) {
	const people = "\"last, first\",n\n\"Doe, Jane\",1\n\"Roe, Rick\",2\n"

	t.Run("repeated columns field", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		rec := post(t, s, "/api/convert", "file", []upload{{"people.csv", people}}, map[string][]string{
			"columns": {"last, first"},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "\"last, first\"\n\"Doe, Jane\"\n\"Roe, Rick\"\n", rec.Body.String())
	})

	t.Run("quoted columns_csv", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		rec := post(t, s, "/api/convert", "file", []upload{{"people.csv", people}}, map[string][]string{
			"columns_csv": {`n, "last, first"`},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "n,\"last, first\"\n1,\"Doe, Jane\"\n2,\"Roe, Rick\"\n", rec.Body.String())
	})

	t.Run("surrounding spaces are kept", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		rec := post(t, s, "/api/convert", "file", []upload{{"pad.csv", " a ,b\n1,2\n"}}, map[string][]string{
			"columns": {" a "},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "\" a \"\n1\n", rec.Body.String())
	})
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     upload
		fields   map[string][]string
		wantCode int
		wantMsg  string
	}{
		{"unknown column", upload{"data.csv", scenarioCSV}, map[string][]string{"columns_csv": {"a,zzz"}}, http.StatusBadRequest, "COL001"},
		{"comma is not a separator in columns", upload{"data.csv", scenarioCSV}, map[string][]string{"columns": {"a,b"}}, http.StatusBadRequest, "COL001"},
		{"malformed columns_csv", upload{"data.csv", scenarioCSV}, map[string][]string{"columns_csv": {`"a,b`}}, http.StatusBadRequest, "REQ001"},
		{"duplicate column", upload{"data.csv", scenarioCSV}, map[string][]string{"columns": {"a", "a"}}, http.StatusBadRequest, "COL002"},
		{"unsupported file", upload{"notes.txt", "hello"}, nil, http.StatusUnsupportedMediaType, "FMT001"},
		{"unsupported export", upload{"data.csv", scenarioCSV}, map[string][]string{"format": {"json"}}, http.StatusBadRequest, "REQ001"},
		{"unknown cleaning op", upload{"data.csv", scenarioCSV}, map[string][]string{"clean": {"shuffle"}}, http.StatusBadRequest, "CLN002"},
		{"invalid encoding", upload{"bad.csv", "a\n\xff\n"}, nil, http.StatusUnprocessableEntity, "FILE003"},
		{"ragged csv", upload{"bad.csv", "a\n1,2\n"}, nil, http.StatusUnprocessableEntity, "FILE002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, nil)
			rec := post(t, s, "/api/convert", "file", []upload{tt.file}, tt.fields)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantMsg, decodeJSON[ErrorResponse](t, rec).Code)
		})
	}
}

func TestConvert_WarningHeader(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := post(t, s, "/api/convert", "file", []upload{{"w.csv", "x,blank\n1,\n,\n"}}, map[string][]string{
		"clean": {"fill_missing"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("X-Cleaning-Warnings"), "blank")
	assert.Equal(t, "x,blank\n1,\n1,\n", rec.Body.String())
}

func TestConvert_SanitizeUTF8(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) { c.Upload.SanitizeUTF8 = true })
	rec := post(t, s, "/api/convert", "file", []upload{{"l1.csv", "name\ncaf\xe9\n"}}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "name\ncaf?\n", rec.Body.String())
}

func TestBatch(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := post(t, s, "/api/batch", "files", []upload{
		{"one.csv", scenarioCSV},
		{"two.csv", "v\n1\n1\n"},
		{"three.doc", "x"},
	}, map[string][]string{
		"clean":  {"remove_duplicates,fill_missing"},
		"format": {"csv"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[batchJSON](t, rec)
	require.Len(t, resp.Files, 3)
	assert.Equal(t, 1, resp.Failed)

	require.NotNil(t, resp.Files[0].Export)
	assert.Equal(t, "a,b\n1,5\n1,5\n2,5\n", string(resp.Files[0].Export.Data))
	assert.Equal(t, "one.csv", resp.Files[0].Export.Filename)

	require.NotNil(t, resp.Files[1].Export)
	assert.Equal(t, "v\n1\n", string(resp.Files[1].Export.Data))

	assert.Nil(t, resp.Files[2].Export)
	assert.Equal(t, "FMT001", resp.Files[2].Error.Code)
}

func TestUploadLimits(t *testing.T) {
	t.Run("file too large", func(t *testing.T) {
		s, _ := newTestServer(t, func(c *config.Config) { c.Upload.MaxFileSize = 8 })
		rec := post(t, s, "/api/inspect", "files", []upload{{"data.csv", scenarioCSV}}, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "FILE001", decodeJSON[ErrorResponse](t, rec).Code)
	})

	t.Run("too many files", func(t *testing.T) {
		s, _ := newTestServer(t, func(c *config.Config) { c.Upload.MaxFiles = 1 })
		rec := post(t, s, "/api/inspect", "files", []upload{{"a.csv", "x\n1\n"}, {"b.csv", "x\n2\n"}}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "UPL001", decodeJSON[ErrorResponse](t, rec).Code)
	})

	t.Run("bad preview", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		rec := post(t, s, "/api/inspect", "files", []upload{{"a.csv", "x\n1\n"}}, map[string][]string{"preview": {"lots"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "REQ001", decodeJSON[ErrorResponse](t, rec).Code)
	})
}

func TestAuditList(t *testing.T) {
	s, _ := newTestServer(t, nil)
	post(t, s, "/api/inspect", "files", []upload{{"a.csv", "x\n1\n"}}, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeJSON[[]core.AuditEntry](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, core.ActionBatch, entries[0].Action)
}

func TestAPIKeyRequired(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"k1"}
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	req.Header.Set("X-API-Key", "k1")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The page and health check stay public.
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.UploadLimit = 1
	})

	first := post(t, s, "/api/inspect", "files", []upload{{"a.csv", "x\n1\n"}}, nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := post(t, s, "/api/inspect", "files", []upload{{"a.csv", "x\n1\n"}}, nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeJSON[ErrorResponse](t, second).Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(core.ErrTooManyUploads))
	assert.Equal(t, http.StatusConflict, statusFor(&core.InvalidTransitionError{From: core.StageUploaded, Action: "export"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(&core.EncodeError{Format: core.FormatExcel}))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
}

func TestRespondError_PlainText(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/somewhere", nil)
	rec := httptest.NewRecorder()
	s.respondError(rec, req, core.ErrNoFile, 0)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "No file was selected (FILE004)"))
}
