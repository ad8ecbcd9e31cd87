package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/simgen"
	"github.com/flarexio/simgen/embedding"
	"github.com/flarexio/simgen/persistence/sqlitevec"
	"github.com/flarexio/simgen/vector"

	mcpE "github.com/flarexio/simgen/mcp"
)

type httpTestSuite struct {
	suite.Suite
	svc    simgen.Service
	router *gin.Engine
}

func (suite *httpTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	pool, err := sqlitevec.Open(context.Background(), vector.Config{
		Path:     filepath.Join(suite.T().TempDir(), "simgen.db"),
		PoolSize: 2,
	})
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	svc, err := simgen.NewService(simgen.DefaultConfig(), pool, embedding.NewHashProvider(768))
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	r := gin.New()
	AddRouters(r, simgen.MakeEndpoints(svc))

	endpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
	endpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
	endpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
	AddStreamableRouters(r, endpoints)

	suite.svc = svc
	suite.router = r
}

func (suite *httpTestSuite) TearDownTest() {
	if suite.svc != nil {
		suite.svc.Close()
	}
}

func (suite *httpTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *httpTestSuite) TestScenario() {
	w := suite.do(http.MethodPost, "/collection", `{"name": "docs", "dimension": 768}`)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("Collection created successfully", w.Body.String())

	w = suite.do(http.MethodPost, "/collection/docs", `{"text": "Cricket legend Sachin Tendulkar"}`)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("Vector inserted successfully", w.Body.String())

	w = suite.do(http.MethodPost, "/collection/docs/search", `{"text": "Roger Federer is a great tennis player", "limit": 1}`)
	suite.Require().Equal(http.StatusOK, w.Code)

	var results []simgen.SearchResult
	err := json.Unmarshal(w.Body.Bytes(), &results)
	suite.Require().NoError(err)
	suite.Require().Len(results, 1)

	suite.Equal("Cricket legend Sachin Tendulkar", results[0].Key)
	suite.Greater(results[0].Similarity, 0.0)
	suite.Less(results[0].Similarity, 1.0)

	w = suite.do(http.MethodDelete, "/collection/docs", "")
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("Collection deleted successfully", w.Body.String())

	w = suite.do(http.MethodPost, "/collection/docs", `{"text": "gone"}`)
	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Contains(w.Body.String(), "Failed to insert vector")
}

func (suite *httpTestSuite) TestSearchEmptyCollection() {
	w := suite.do(http.MethodPost, "/collection", `{"name": "docs", "dimension": 768}`)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/collection/docs/search", `{"text": "anything"}`)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`[]`, w.Body.String())
}

func (suite *httpTestSuite) TestCreateDuplicate() {
	w := suite.do(http.MethodPost, "/collection", `{"name": "docs", "dimension": 768}`)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/collection", `{"name": "docs", "dimension": 768}`)
	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Contains(w.Body.String(), simgen.ErrCollectionExists.Error())
}

func (suite *httpTestSuite) TestInvalidName() {
	w := suite.do(http.MethodPost, "/collection", `{"name": "docs; DROP TABLE x", "dimension": 768}`)
	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Contains(w.Body.String(), simgen.ErrInvalidName.Error())
}

func (suite *httpTestSuite) TestMalformedBody() {
	w := suite.do(http.MethodPost, "/collection", `{"name": `)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/collection/docs", `{}`)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/collection/docs/search", `{"limit": 3}`)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *httpTestSuite) TestListCollections() {
	w := suite.do(http.MethodPost, "/collection", `{"name": "docs", "dimension": 768, "metric": "l2"}`)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/collections", "")
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`[{"name": "docs", "dimension": 768, "metric": "l2"}]`, w.Body.String())
}

func (suite *httpTestSuite) TestPing() {
	w := suite.do(http.MethodGet, "/", "")
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("1", w.Body.String())
}

func (suite *httpTestSuite) TestMCP() {
	w := suite.do(http.MethodPost, "/mcp/", `{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), mcpE.ToolSearchCollection)

	w = suite.do(http.MethodPost, "/mcp/", `{"jsonrpc": "2.0", "id": 2, "method": "resources/list"}`)
	suite.Equal(http.StatusNotFound, w.Code)
}

func TestHTTPTestSuite(t *testing.T) {
	suite.Run(t, new(httpTestSuite))
}
