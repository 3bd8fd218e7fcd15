package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/opendpho/epidash/internal/config"
	diseasedomain "github.com/opendpho/epidash/internal/disease/domain"
	diseaserepository "github.com/opendpho/epidash/internal/disease/repository"
	diseaseservice "github.com/opendpho/epidash/internal/disease/service"
	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
	facttablerepository "github.com/opendpho/epidash/internal/facttable/repository"
	facttableservice "github.com/opendpho/epidash/internal/facttable/service"
	importrundomain "github.com/opendpho/epidash/internal/importrun/domain"
	importrunrepository "github.com/opendpho/epidash/internal/importrun/repository"
	ingestservice "github.com/opendpho/epidash/internal/ingest/service"
	"github.com/opendpho/epidash/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminToken = "test-admin-token"

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	return newTestServerWithConfig(t, config.DefaultIngestionConfig())
}

func newTestServerWithConfig(t *testing.T, ingestCfg config.IngestionConfig) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&diseasedomain.Disease{},
		&facttabledomain.FactTableMapping{},
		&importrundomain.ImportRun{},
	))
	require.NoError(t, seed.EnsureBaselineDiseases(conn))

	log := zap.NewNop()
	holder := config.StaticIngestionConfigHolder(ingestCfg)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	diseaseSvc := diseaseservice.New(diseaseservice.Params{
		DB: conn, Log: log, Repo: diseaserepository.Provide(),
	})
	tableSvc := facttableservice.New(facttableservice.Params{
		DB: conn, Log: log,
		Repo:    facttablerepository.Provide(),
		Disease: diseaserepository.Provide(),
		Holder:  holder,
	})
	ingestSvc := ingestservice.New(ingestservice.Params{
		DB: conn, Log: log,
		Holder: holder,
		Tables: tableSvc,
		Runs:   importrunrepository.Provide(),
		Node:   node,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{AdminAPIToken: testAdminToken},
		DB:         conn,
		Holder:     holder,
		DiseaseSvc: diseaseSvc,
		TableSvc:   tableSvc,
		IngestSvc:  ingestSvc,
		RunRepo:    importrunrepository.Provide(),
	})
	return srv, conn
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, fields map[string]string, fileContents string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", "cases.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(fileContents))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func doImport(t *testing.T, srv *Server, token string, fields map[string]string, csv string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, fields, csv)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/fact-tables/A90/import", body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/admin/fact-tables", "", provisionRequest{TableName: "a90_cases"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/admin/fact-tables", "wrong-token", provisionRequest{TableName: "a90_cases"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	srv.cfg.AdminAPIToken = ""
	w = doJSON(t, srv, http.MethodPost, "/api/admin/fact-tables", testAdminToken, provisionRequest{TableName: "a90_cases"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProvisionRejectsInvalidIdentifiers(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/admin/fact-tables", testAdminToken,
		provisionRequest{TableName: "a90_cases; DROP TABLE diseases"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/admin/fact-tables", testAdminToken,
		provisionRequest{TableName: "b01_cases", DiseaseCode: "A90"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `a90_`)

	w = doJSON(t, srv, http.MethodPost, "/api/admin/fact-tables", testAdminToken,
		provisionRequest{TableName: "b01_cases", DiseaseCode: "B01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_disease")
}

func TestProvisionNeedsPostgres(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/admin/fact-tables", testAdminToken,
		provisionRequest{TableName: "a90_cases", DiseaseCode: "A90"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListDiseases(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/diseases", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "A90")
	assert.Contains(t, w.Body.String(), "A91")
}

func TestCreateDisease(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/admin/diseases", testAdminToken,
		diseasedomain.CreateRequest{Code: "B01", NameTH: "อีสุกอีใส"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/admin/diseases", testAdminToken,
		diseasedomain.CreateRequest{Code: "B01", NameTH: "อีสุกอีใส"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/admin/diseases", testAdminToken,
		diseasedomain.CreateRequest{Code: "not-a-code", NameTH: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveDiseaseTable(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/diseases/A90/table", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		DiseaseCode string `json:"disease_code"`
		Schema      string `json:"schema"`
		Table       string `json:"table"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "A90", payload.DiseaseCode)
	assert.Equal(t, "public", payload.Schema)
	assert.Equal(t, "a90_cases", payload.Table)
}

func TestImportEndToEnd(t *testing.T) {
	srv, conn := newTestServer(t)
	require.NoError(t, conn.Exec(
		`CREATE TABLE a90_cases (id integer, disease_code text NOT NULL, gender text, age_y integer,
		 nationality text, occupation text, province text, district text,
		 onset_date text, onset_date_parsed text NOT NULL,
		 treated_date text, treated_date_parsed text,
		 diagnosis_date text, diagnosis_date_parsed text,
		 death_date text, death_date_parsed text,
		 PRIMARY KEY (onset_date_parsed, id))`).Error)

	csv := "onset_date,gender,age_y\n2024/1/5,M,30\n31/02/2024,F,40\n2567-03-10,,\n"
	w := doImport(t, srv, testAdminToken, map[string]string{
		"diseaseCode": "A90",
		"tableName":   "a90_cases",
	}, csv)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp importResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Inserted)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, 3, resp.TotalRows)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, 3, resp.Warnings[0].Line)

	// Strict mode turns the same upload into a rejection.
	w = doImport(t, srv, testAdminToken, map[string]string{
		"diseaseCode": "A90",
		"tableName":   "a90_cases",
		"skipBadRows": "false",
	}, csv)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "validation_rejected")

	// The run log has both attempts.
	w = doJSON(t, srv, http.MethodGet, "/api/admin/import-runs", testAdminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), importrundomain.StatusCompleted)
	assert.Contains(t, w.Body.String(), importrundomain.StatusRejected)
}

func TestImportMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("diseaseCode", "A90"))
	require.NoError(t, writer.WriteField("tableName", "a90_cases"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/fact-tables/A90/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportPayloadTooLarge(t *testing.T) {
	cfg := config.DefaultIngestionConfig()
	cfg.MaxUploadBytes = 32
	srv, _ := newTestServerWithConfig(t, cfg)

	w := doImport(t, srv, testAdminToken, map[string]string{
		"diseaseCode": "A90",
		"tableName":   "a90_cases",
	}, "onset_date,gender\n"+strings.Repeat("2024-01-05,M\n", 10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
