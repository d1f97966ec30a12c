package cloudcontroller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type fakeController struct {
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newFakeController(t *testing.T) (*fakeController, *Client) {
	t.Helper()
	fc := &fakeController{handlers: make(map[string]http.HandlerFunc)}
	srv := httptest.NewServer(http.HandlerFunc(fc.serve))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "tok-1", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return fc, c
}

func (fc *fakeController) handle(method, path string, h http.HandlerFunc) {
	fc.handlers[method+" "+path] = h
}

func (fc *fakeController) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fc.mu.Lock()
	fc.requests = append(fc.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query().Get("q"),
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})
	h := fc.handlers[r.Method+" "+r.URL.Path]
	fc.mu.Unlock()
	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (fc *fakeController) Requests() []recordedRequest {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]recordedRequest(nil), fc.requests...)
}

func writeJSON(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func pageOf(guids ...string) map[string]any {
	resources := make([]map[string]any, 0, len(guids))
	for _, g := range guids {
		resources = append(resources, map[string]any{"metadata": map[string]any{"guid": g}, "entity": map[string]any{}})
	}
	return map[string]any{"total_results": len(guids), "resources": resources}
}

func TestInfo(t *testing.T) {
	t.Parallel()

	fc, c := newFakeController(t)
	fc.handle("GET", "/v2/info", writeJSON(map[string]any{
		"doppler_logging_endpoint": "wss://doppler.example.com:443",
		"logging_endpoint":         "wss://loggregator.example.com:443",
		"token_endpoint":           "https://uaa.example.com",
	}))

	info, err := c.Info(context.Background())
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.DopplerLoggingEndpoint != "wss://doppler.example.com:443" || info.LoggingEndpoint != "wss://loggregator.example.com:443" {
		t.Fatalf("Info() = %+v", info)
	}
	reqs := fc.Requests()
	if len(reqs) != 1 || reqs[0].Auth != "bearer tok-1" {
		t.Fatalf("requests = %+v, want one bearer-authenticated request", reqs)
	}
}

func TestResolveSpaceAndApp(t *testing.T) {
	t.Parallel()

	fc, c := newFakeController(t)
	fc.handle("GET", "/v2/organizations", writeJSON(pageOf("org-guid")))
	fc.handle("GET", "/v2/organizations/org-guid/spaces", writeJSON(pageOf("space-guid")))
	fc.handle("GET", "/v2/spaces/space-guid/apps", writeJSON(pageOf("app-guid")))

	spaceGUID, err := c.ResolveSpace(context.Background(), " acme ", "dev")
	if err != nil {
		t.Fatalf("ResolveSpace() error = %v", err)
	}
	if spaceGUID != "space-guid" {
		t.Fatalf("ResolveSpace() = %q, want space-guid", spaceGUID)
	}
	app, err := c.ResolveApp(context.Background(), "web", spaceGUID)
	if err != nil {
		t.Fatalf("ResolveApp() error = %v", err)
	}
	if app.GUID != "app-guid" || app.Name != "web" {
		t.Fatalf("ResolveApp() = %+v", app)
	}

	reqs := fc.Requests()
	if len(reqs) != 3 {
		t.Fatalf("request count = %d, want 3", len(reqs))
	}
	if reqs[0].Query != "name:acme" || reqs[1].Query != "name:dev" || reqs[2].Query != "name:web" {
		t.Fatalf("queries = %q %q %q", reqs[0].Query, reqs[1].Query, reqs[2].Query)
	}
}

func TestResolveAppNotFound(t *testing.T) {
	t.Parallel()

	fc, c := newFakeController(t)
	fc.handle("GET", "/v2/spaces/space-guid/apps", writeJSON(pageOf()))

	_, err := c.ResolveApp(context.Background(), "web", "space-guid")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ResolveApp() error = %v, want ErrNotFound", err)
	}
}

func TestAppSummary(t *testing.T) {
	t.Parallel()

	fc, c := newFakeController(t)
	fc.handle("GET", "/v2/apps/app-guid/summary", writeJSON(map[string]any{
		"guid":              "app-guid",
		"name":              "web",
		"state":             "STARTED",
		"running_instances": 2,
		"package_state":     "STAGED",
	}))

	summary, err := c.AppSummary(context.Background(), "app-guid")
	if err != nil {
		t.Fatalf("AppSummary() error = %v", err)
	}
	if summary.State != AppStarted || summary.RunningInstances != 2 || summary.PackageState != PackageStaged {
		t.Fatalf("AppSummary() = %+v", summary)
	}
	if summary.Stopped() {
		t.Fatal("Stopped() = true, want false")
	}
}

func TestUpdateAppState(t *testing.T) {
	t.Parallel()

	fc, c := newFakeController(t)
	fc.handle("PUT", "/v2/apps/app-guid", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	if err := c.UpdateAppState(context.Background(), "app-guid", AppStopped); err != nil {
		t.Fatalf("UpdateAppState() error = %v", err)
	}
	reqs := fc.Requests()
	if len(reqs) != 1 || !strings.Contains(reqs[0].Body, `"state":"STOPPED"`) {
		t.Fatalf("requests = %+v, want STOPPED body", reqs)
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	fc, c := newFakeController(t)
	fc.handle("GET", "/v2/apps/app-guid/summary", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := c.AppSummary(context.Background(), "app-guid")
	if !IsTransient(err) {
		t.Fatalf("AppSummary() error = %v, want transient", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("AppSummary() error = %v, want APIError 502", err)
	}
	if apiErr.Description != "upstream unavailable" {
		t.Fatalf("APIError.Description = %q", apiErr.Description)
	}
}

func TestClientErrorSurfacesVerbatim(t *testing.T) {
	t.Parallel()

	fc, c := newFakeController(t)
	fc.handle("PUT", "/v2/apps/app-guid", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":100001,"description":"The app is invalid","error_code":"CF-AppInvalid"}`))
	})

	err := c.UpdateAppState(context.Background(), "app-guid", AppStarted)
	if err == nil || IsTransient(err) {
		t.Fatalf("UpdateAppState() error = %v, want non-transient", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("UpdateAppState() error = %v, want APIError", err)
	}
	if apiErr.ErrorCode != "CF-AppInvalid" || apiErr.Code != 100001 || apiErr.Description != "The app is invalid" {
		t.Fatalf("APIError = %+v", apiErr)
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, "tok")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.Info(context.Background()); !IsTransient(err) {
		t.Fatalf("Info() error = %v, want transient", err)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":             "",
		"abc":          "bearer abc",
		"bearer abc":   "bearer abc",
		"Bearer  abc ": "bearer abc",
		" BEARER xyz":  "bearer xyz",
	}
	for in, want := range tests {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	var gotUser, gotGrant string
	uaa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		gotUser = r.PostForm.Get("username")
		gotGrant = r.PostForm.Get("grant_type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"uaa-token","token_type":"bearer","expires_in":600}`))
	}))
	t.Cleanup(uaa.Close)

	token, err := Login(context.Background(), Info{TokenEndpoint: uaa.URL}, "admin", "secret", false)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "bearer uaa-token" {
		t.Fatalf("Login() = %q, want bearer uaa-token", token)
	}
	if gotUser != "admin" || gotGrant != "password" {
		t.Fatalf("token request user=%q grant=%q", gotUser, gotGrant)
	}
}

func TestLoginWithoutEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := Login(context.Background(), Info{}, "admin", "secret", false); err == nil {
		t.Fatal("Login() error = nil, want missing endpoint error")
	}
}
