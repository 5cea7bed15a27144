package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"Vista/config"
	"Vista/plugins/datasources/fake"
	_ "Vista/plugins/parsers/all"
)

const importSource = `<dashboard version="1">
  <label>Checkout Funnel</label>
  <fieldset submitButton="false">
    <input type="dropdown" token="region">
      <default>eu</default>
    </input>
  </fieldset>
  <row>
    <panel>
      <title>Orders</title>
      <chart>
        <option name="charting.chart">column</option>
        <search>
          <query>index=orders region=$region$ | timechart count</query>
        </search>
      </chart>
    </panel>
  </row>
</dashboard>`

func newTestServer(t *testing.T) (*Server, *fake.Fake) {
	t.Helper()
	backend := fake.New()
	backend.Default = fake.Script{Rows: fake.Rows(2)}

	cfg := config.NewConfig()
	cfg.Tracker.PollInterval = config.Duration(2 * time.Millisecond)

	server, err := NewServer(context.Background(), cfg, backend)
	require.NoError(t, err)
	t.Cleanup(func() {
		server.orchestrator.Close()
		server.tracker.Stop()
		server.bus.Close()
	})
	return server, backend
}

func do(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		if strings.HasPrefix(strings.TrimSpace(body), "{") {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	rec := httptest.NewRecorder()
	server.e.ServeHTTP(rec, req)
	return rec
}

func TestImportGetAndDelete(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/v1/dashboards/import?namespace=shop&name=funnel", importSource)
	require.Equal(t, 201, rec.Code)
	body := rec.Body.String()
	require.EqualValues(t, 1, gjson.Get(body, "dataSources").Int())
	require.EqualValues(t, 1, gjson.Get(body, "visualizations").Int())
	require.EqualValues(t, 1, gjson.Get(body, "inputs").Int())
	hash := gjson.Get(body, "contentHash").String()
	require.Len(t, hash, 16)

	// Re-importing the identical source skips the rebuild.
	rec = do(t, server, http.MethodPost, "/api/v1/dashboards/import?namespace=shop&name=funnel", importSource)
	require.Equal(t, 200, rec.Code)
	require.True(t, gjson.Get(rec.Body.String(), "unchanged").Bool())

	rec = do(t, server, http.MethodGet, "/api/v1/dashboards", "")
	require.Equal(t, 200, rec.Code)
	require.EqualValues(t, 1, gjson.Parse(rec.Body.String()).Get("#").Int())

	rec = do(t, server, http.MethodGet, "/api/v1/dashboards/shop/funnel", "")
	require.Equal(t, 200, rec.Code)
	require.Equal(t, "Checkout Funnel", gjson.Get(rec.Body.String(), "title").String())

	rec = do(t, server, http.MethodDelete, "/api/v1/dashboards/shop/funnel", "")
	require.Equal(t, 200, rec.Code)
	rec = do(t, server, http.MethodGet, "/api/v1/dashboards/shop/funnel", "")
	require.Equal(t, 404, rec.Code)
}

func TestImportRejectsBadSource(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/v1/dashboards/import?name=x", "<dashboard version=\"9\"/>")
	require.Equal(t, 400, rec.Code)

	rec = do(t, server, http.MethodPost, "/api/v1/dashboards/import", importSource)
	require.Equal(t, 400, rec.Code, "name query parameter is required")
}

func TestConvertEndpointSniffsDialect(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/v1/convert", importSource)
	require.Equal(t, 200, rec.Code)
	out := rec.Body.String()
	require.Equal(t, "1.1", gjson.Get(out, "version").String())
	require.Equal(t, "Checkout Funnel", gjson.Get(out, "title").String())
	require.EqualValues(t, 1, gjson.Get(out, "dataSources|@keys|#").Int())

	// The emitted studio document feeds straight back in.
	rec = do(t, server, http.MethodPost, "/api/v1/convert?to=document", out)
	require.Equal(t, 200, rec.Code)
	require.Equal(t, "Checkout Funnel", gjson.Get(rec.Body.String(), "Title").String())
}

func TestRunDashboardAndExecutionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/v1/dashboards/import?namespace=shop&name=funnel", importSource)
	require.Equal(t, 201, rec.Code)

	// Pick a region, then run the whole dashboard.
	rec = do(t, server, http.MethodPost, "/api/v1/dashboards/shop/funnel/tokens", `{"name":"region","value":"us"}`)
	require.Equal(t, 200, rec.Code)

	rec = do(t, server, http.MethodPost, "/api/v1/dashboards/shop/funnel/run", "")
	require.Equal(t, 202, rec.Code)
	executions := gjson.Get(rec.Body.String(), "executions").Map()
	require.Len(t, executions, 1)
	id := executions["ds_1"].String()
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		rec := do(t, server, http.MethodGet, "/api/v1/executions/"+id, "")
		return rec.Code == 200 && gjson.Get(rec.Body.String(), "status").String() == "completed"
	}, 2*time.Second, 5*time.Millisecond)

	rec = do(t, server, http.MethodGet, "/api/v1/executions/"+id, "")
	record := rec.Body.String()
	require.Equal(t, "index=orders region=us | timechart count", gjson.Get(record, "query").String())
	require.EqualValues(t, 2, gjson.Get(record, "result_count").Int())

	rec = do(t, server, http.MethodGet, "/api/v1/executions?dashboard=shop/funnel&source=ds_1", "")
	require.Equal(t, 200, rec.Code)
	require.EqualValues(t, 1, gjson.Parse(rec.Body.String()).Get("#").Int())
}

func TestStartAndCancelExecution(t *testing.T) {
	server, backend := newTestServer(t)
	backend.Scripts["index=slow"] = fake.Script{Hang: true}

	payload, err := json.Marshal(map[string]interface{}{"query": "index=slow"})
	require.NoError(t, err)
	rec := do(t, server, http.MethodPost, "/api/v1/executions", string(payload))
	require.Equal(t, 202, rec.Code)
	id := gjson.Get(rec.Body.String(), "executionId").String()
	require.NotEmpty(t, id)

	rec = do(t, server, http.MethodPost, "/api/v1/executions/"+id+"/cancel", "")
	require.Equal(t, 200, rec.Code)

	rec = do(t, server, http.MethodGet, "/api/v1/executions/"+id, "")
	require.Equal(t, "cancelled", gjson.Get(rec.Body.String(), "status").String())

	rec = do(t, server, http.MethodPost, "/api/v1/executions/unknown/cancel", "")
	require.Equal(t, 404, rec.Code)
}

func TestAuthGuardsAPI(t *testing.T) {
	backend := fake.New()
	cfg := config.NewConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.Username = "ops"
	cfg.Auth.Password = "hunter2"

	server, err := NewServer(context.Background(), cfg, backend)
	require.NoError(t, err)
	t.Cleanup(func() {
		server.orchestrator.Close()
		server.tracker.Stop()
		server.bus.Close()
	})

	rec := do(t, server, http.MethodGet, "/api/v1/dashboards", "")
	require.Equal(t, 401, rec.Code)

	rec = do(t, server, http.MethodPost, "/login", `{"username":"ops","password":"wrong"}`)
	require.Equal(t, 401, rec.Code)

	rec = do(t, server, http.MethodPost, "/login", `{"username":"ops","password":"hunter2"}`)
	require.Equal(t, 200, rec.Code)
	tokenString := gjson.Get(rec.Body.String(), "token").String()
	require.NotEmpty(t, tokenString)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboards", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	authed := httptest.NewRecorder()
	server.e.ServeHTTP(authed, req)
	require.Equal(t, 200, authed.Code)
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	rec := do(t, server, http.MethodGet, "/healthz", "")
	require.Equal(t, 200, rec.Code)
}
