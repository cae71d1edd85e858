package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/config"
	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/store"
)

const (
	ledgerCSV = "TransactionID,Posting_Date,Amount,Memo\n" +
		"T1,2024-01-02,10.00,office rent\n" +
		"T2,2024-01-03,20.00,team lunch\n" +
		"T3,2024-01-04,15.50,fuel card\n"

	bankCSV = "Ref_No,Value_Date,Total Amount,Description\n" +
		"T1,2024-01-02,10.00,office rent\n" +
		"T2,2024-01-03,25.00,team lunch\n" +
		"T4,2024-01-05,12.75,bank fee\n"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.Upload.TempDir = t.TempDir()
	cfg.Security.EnableCSP = true
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	svc := core.NewService(st, core.Options{MaxConcurrent: 2, MaxWait: time.Second})
	s := NewServer(svc, cfg)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, st
}

// multipartRequest builds a POST with the given files and form fields.
func multipartRequest(t *testing.T, target string, files map[string][2]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func bothFiles() map[string][2]string {
	return map[string][2]string{
		"file1": {"ledger.csv", ledgerCSV},
		"file2": {"bank.csv", bankCSV},
	}
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if v != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(v))
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st core.LimiterStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, core.LimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}, st)
}

func TestCompare_ObjectMappings(t *testing.T) {
	cfg := testConfig(t)
	s, st := newTestServer(t, cfg)

	req := multipartRequest(t, "/api/compare", bothFiles(), map[string]string{
		"fieldMappings": `{"TransactionID": "Ref_No", "Amount": "Total Amount"}`,
	})
	rec := do(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var job store.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, store.JobCompleted, job.Status)
	assert.Equal(t, "ledger.csv", job.File1)
	assert.Equal(t, "bank.csv", job.File2)
	require.NotNil(t, job.Report)
	require.Len(t, job.Report.Fields, 2)

	id := job.Report.Fields[0]
	assert.Equal(t, "TransactionID", id.Label)
	assert.Equal(t, []string{"T1", "T2"}, id.Matching)
	assert.Equal(t, []string{"T3"}, id.OnlyIn1)
	assert.Equal(t, []string{"T4"}, id.OnlyIn2)
	assert.Equal(t, "Amount", job.Report.Fields[1].Label)

	stored, err := st.GetJob(t.Context(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobCompleted, stored.Status)

	entries, err := os.ReadDir(cfg.Upload.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "uploads are removed after the request")
}

func TestCompare_ArrayMappings(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	req := multipartRequest(t, "/api/compare", bothFiles(), map[string]string{
		"fieldMappings": `[{"field": "id", "column1": "TransactionID", "column2": "Ref_No"}]`,
	})
	rec := do(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var job store.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.NotNil(t, job.Report)
	require.Len(t, job.Report.Fields, 1)
	assert.Equal(t, "id", job.Report.Fields[0].Label)
	assert.Equal(t, "TransactionID", job.Report.Fields[0].Column1)
}

func TestCompare_Errors(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string][2]string
		fields map[string]string
		status int
		code   string
	}{
		{
			name:   "missing second file",
			files:  map[string][2]string{"file1": {"ledger.csv", ledgerCSV}},
			fields: map[string]string{"fieldMappings": `{"TransactionID": "Ref_No"}`},
			status: http.StatusBadRequest,
			code:   "FILE004",
		},
		{
			name:   "empty file",
			files:  map[string][2]string{"file1": {"ledger.csv", ledgerCSV}, "file2": {"bank.csv", ""}},
			fields: map[string]string{"fieldMappings": `{"TransactionID": "Ref_No"}`},
			status: http.StatusBadRequest,
			code:   "FILE005",
		},
		{
			name:   "malformed mappings",
			files:  bothFiles(),
			fields: map[string]string{"fieldMappings": `{"TransactionID": `},
			status: http.StatusBadRequest,
			code:   "MAP003",
		},
		{
			name:   "no mappings",
			files:  bothFiles(),
			status: http.StatusBadRequest,
			code:   "MAP003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, testConfig(t))
			rec := do(s, multipartRequest(t, "/api/compare", tt.files, tt.fields))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestCompare_FileTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxFileSize = 16
	s, _ := newTestServer(t, cfg)

	rec := do(s, multipartRequest(t, "/api/compare", bothFiles(), map[string]string{
		"fieldMappings": `{"TransactionID": "Ref_No"}`,
	}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestCompare_FailedJobIsReported(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	// No catalog entry resolves "account" in these files.
	rec := do(s, multipartRequest(t, "/api/compare", bothFiles(), map[string]string{
		"fieldTypes": `["account"]`,
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	resp := decodeError(t, rec)
	assert.Equal(t, "MAP001", resp.Code)
	require.NotEmpty(t, resp.JobID)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/comparisons/"+resp.JobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var job store.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, store.JobFailed, job.Status)
}

func TestSuggest(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, multipartRequest(t, "/api/suggest", bothFiles(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res core.SuggestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.File1.Rows)
	assert.Equal(t, []string{"Ref_No", "Value_Date", "Total Amount", "Description"}, res.File2.Columns)
	assert.NotEmpty(t, res.Suggestions)
}

func TestResolve(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, multipartRequest(t, "/api/compare/resolve", bothFiles(), map[string]string{
		"fieldTypes": "date",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Fields []compare.FieldPair `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []compare.FieldPair{{Label: "date", Column1: "Posting_Date", Column2: "Value_Date"}}, body.Fields)
}

func TestComparisonsHistoryAndExport(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, multipartRequest(t, "/api/compare", bothFiles(), map[string]string{
		"fieldMappings": `{"TransactionID": "Ref_No"}`,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var job store.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/comparisons?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []store.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/comparisons/"+job.ID.String()+"/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "comparison_"+job.ID.String()+".csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Comparison Summary"))
	assert.Contains(t, rec.Body.String(), "Only in File 2,Not Present,T4")

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/comparisons/"+job.ID.String()+"/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/comparisons/"+job.ID.String()+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetComparison_Errors(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/comparisons/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/comparisons/6f1c2a56-8d7e-4c1b-9f53-0a4d2b1e7c90", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB001", decodeError(t, rec).Code)
}

func TestExportPostedReport(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	report := compare.Report{
		TotalRows: compare.RowCounts{File1: 2, File2: 1},
		Fields: []compare.FieldResult{{
			Label:    "id",
			Column1:  "a",
			Column2:  "b",
			Matching: []string{"1"},
			OnlyIn1:  []string{"2"},
		}},
	}
	rec := do(s, jsonRequest(t, http.MethodPost, "/api/export", report))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "comparison_results_")
	assert.Contains(t, rec.Body.String(), "File 1 Total Rows,2,")
	assert.Contains(t, rec.Body.String(), "Only in File 1,2,Not Present")

	req := httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader("{"))
	rec = do(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMappingsCRUD(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, jsonRequest(t, http.MethodPost, "/api/mappings", core.MappingInput{
		FieldType:  "invoice",
		Variations: []string{"invoice_no", "inv"},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var fm store.FieldMapping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fm))
	assert.True(t, fm.Active)

	rec = do(s, jsonRequest(t, http.MethodPost, "/api/mappings", core.MappingInput{FieldType: "Invoice"}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DB001", decodeError(t, rec).Code)

	path := "/api/mappings/" + fm.ID.String()
	rec = do(s, jsonRequest(t, http.MethodPost, path+"/variations", map[string]string{"variation": "bill_no"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fm))
	assert.Contains(t, fm.Variations, "bill_no")

	rec = do(s, jsonRequest(t, http.MethodPut, path, core.MappingInput{
		FieldType:   "invoice",
		Variations:  []string{"invoice_number"},
		Description: "supplier invoice",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fm))
	assert.Equal(t, "supplier invoice", fm.Description)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/mappings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var all []store.FieldMapping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	rec = do(s, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MAP004", decodeError(t, rec).Code)
}

func TestSeedMappings(t *testing.T) {
	s, st := newTestServer(t, testConfig(t))

	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/mappings/seed", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res core.SeedResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Positive(t, res.Created)

	yaml := "field_types:\n  vendor:\n    - vendor_name\n    - supplier\n"
	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/mappings/seed", strings.NewReader(yaml)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, core.SeedResult{Created: 1}, res)

	fm, err := st.GetMappingByType(t.Context(), "vendor")
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor_name", "supplier"}, fm.Variations)
}

func TestTasks(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, jsonRequest(t, http.MethodPost, "/api/tasks", core.TaskInput{Name: "nightly"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "JOB004", decodeError(t, rec).Code)

	rec = do(s, jsonRequest(t, http.MethodPost, "/api/tasks", core.TaskInput{
		Name:       "nightly",
		SourcePath: "/no/such/ledger.csv",
		TargetPath: "/no/such/bank.csv",
		Fields:     []compare.FieldPair{{Label: "id", Column1: "TransactionID", Column2: "Ref_No"}},
		Frequency:  "daily",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task store.ScheduledTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, store.TaskActive, task.Status)

	path := "/api/tasks/" + task.ID.String()
	rec = do(s, jsonRequest(t, http.MethodPut, path+"/status", map[string]string{"status": "paused"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, store.TaskPaused, task.Status)

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/tasks/run", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum core.TaskRunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, core.TaskRunSummary{}, sum, "paused tasks are not due")

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []store.ScheduledTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 1)

	rec = do(s, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB002", decodeError(t, rec).Code)
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := do(s, multipartRequest(t, "/api/compare", bothFiles(), map[string]string{
		"fieldMappings": `{"TransactionID": "Ref_No"}`,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st core.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.Completed)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	cfg.Rate.UploadLimit = 1
	s, _ := newTestServer(t, cfg)

	for i := range 2 {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		require.Equal(t, http.StatusOK, rec.Code, fmt.Sprintf("request %d", i+1))
	}

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	// Buckets are per client address.
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, do(s, req).Code)
}

func TestParseFieldMappings(t *testing.T) {
	pairs, err := parseFieldMappings(`{"z": "a", "b": "y", "m": "m"}`)
	require.NoError(t, err)
	assert.Equal(t, []compare.FieldPair{
		{Label: "z", Column1: "z", Column2: "a"},
		{Label: "b", Column1: "b", Column2: "y"},
		{Label: "m", Column1: "m", Column2: "m"},
	}, pairs, "object order is kept")

	pairs, err = parseFieldMappings(`[{"column1": "a", "column2": "b"}]`)
	require.NoError(t, err)
	assert.Equal(t, []compare.FieldPair{{Label: "a", Column1: "a", Column2: "b"}}, pairs)

	pairs, err = parseFieldMappings("  ")
	require.NoError(t, err)
	assert.Nil(t, pairs)

	for _, bad := range []string{`"a"`, `{"a": 1}`, `[1]`, `{"a": "b"`} {
		_, err := parseFieldMappings(bad)
		assert.ErrorIs(t, err, core.ErrInvalidMapping, bad)
	}
}

func TestFormList(t *testing.T) {
	got, err := formList(`["amount", "date"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "date"}, got)

	got, err = formList(" amount, ,date ")
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "date"}, got)

	_, err = formList(`["amount"`)
	assert.ErrorIs(t, err, errInvalidBody)
}
