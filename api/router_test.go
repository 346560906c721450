package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucode/ucode_go_query_engine_service/api"
	"ucode/ucode_go_query_engine_service/config"
	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/export"
	"ucode/ucode_go_query_engine_service/models"
	"ucode/ucode_go_query_engine_service/pkg/logger"
	"ucode/ucode_go_query_engine_service/storage/document"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewLogger("query_engine_test", logger.LevelError)

	compiler, err := engine.NewQueryCompiler(0)
	require.NoError(t, err)

	driver := document.NewDriver()
	driver.Insert("users",
		map[string]any{"guid": "1", "name": "Alice", "status": "active"},
		map[string]any{"guid": "2", "name": "Bob", "status": "disabled"},
	)

	registry := engine.NewSchemaRegistry()
	registry.RegisterObject(models.ObjectSchema{
		Name: "users",
		Fields: map[string]models.FieldDescriptor{
			"guid":   {Type: "uuid"},
			"name":   {Type: "text"},
			"status": {Type: "text"},
		},
	})

	service := engine.NewQueryService(log, compiler, driver)
	analyzer := engine.NewQueryAnalyzer(registry)
	exporter := export.NewExporter(config.Config{}, log, service)

	return api.SetUpRouter(log, service, analyzer, exporter)
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestQueryEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/objects/users/query",
		`{"filters": {"status": "active"}}`)

	require.Equal(t, http.StatusOK, w.Code)

	var result models.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Value, 1)
	assert.Equal(t, "Alice", result.Value[0]["name"])
}

func TestQueryEndpointWithCount(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/objects/users/query?with_count=true", `{}`)

	require.Equal(t, http.StatusOK, w.Code)

	var result models.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(2), result.Count)
}

func TestQueryEndpointRejectsUnsupportedOperator(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/objects/users/query",
		`{"filters": {"$not": {"status": "active"}}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "$not")
}

func TestQueryEndpointRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/objects/users/query", `{"filters":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExplainEndpointUnknownObject(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/objects/missing/explain", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExplainEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/objects/users/explain",
		`{"filters": {"status": "active"}, "top": 5}`)

	require.Equal(t, http.StatusOK, w.Code)

	var plan engine.ExplainPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, "users", plan.Object)
	assert.Equal(t, []string{"status"}, plan.FilteredFields)
}

func TestAggregationOverDocumentDriverIsNotImplemented(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/objects/users/query",
		`{"aggregate": [{"func": "count", "field": "guid"}]}`)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestProfileEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/objects/users/profile", `{"top": 1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var profile engine.ProfileResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, int64(1), profile.RowsReturned)
	assert.Equal(t, 1.0, profile.Efficiency)
}

func TestStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doRequest(router, http.MethodPost, "/v1/objects/users/profile", `{}`)

	w := doRequest(router, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats engine.ServiceStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalQueries)
}
