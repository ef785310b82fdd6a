package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/imread/internal/server"
	"github.com/MeKo-Tech/imread/internal/workerpool"
	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"
)

// theServerIsRunning starts an in-process server on its own worker pool.
func (testCtx *TestContext) theServerIsRunning() error {
	pool, err := workerpool.New(2)
	if err != nil {
		return err
	}
	srv := server.NewServer(server.Config{
		CORSOrigin: "*",
		MaxPaths:   10,
		Pool:       pool,
		Logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	testCtx.ServerPool = pool
	testCtx.HTTPTestServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) stopServer() {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Close()
		testCtx.HTTPTestServer = nil
	}
	if testCtx.ServerPool != nil {
		testCtx.ServerPool.Close()
		testCtx.ServerPool = nil
	}
}

func (testCtx *TestContext) requireServer() error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	return nil
}

// readRequestBody builds a read request from a comma-separated list of
// scenario file names.
func (testCtx *TestContext) readRequestBody(names, mode string) ([]byte, error) {
	req := server.ReadRequest{Paths: []string{}, Mode: mode}
	for _, name := range strings.Split(names, ",") {
		if name = strings.TrimSpace(name); name != "" {
			req.Paths = append(req.Paths, testCtx.path(name))
		}
	}
	return json.Marshal(req)
}

func (testCtx *TestContext) iGET(endpoint string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	resp, err := http.Get(testCtx.HTTPTestServer.URL + endpoint) //nolint:noctx // test request
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", endpoint, err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) iPOSTAReadRequestInMode(names, mode string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	body, err := testCtx.readRequestBody(names, mode)
	if err != nil {
		return err
	}
	resp, err := http.Post(testCtx.HTTPTestServer.URL+"/v1/read", "application/json", //nolint:noctx // test request
		bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("POST /v1/read failed: %w", err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) iPOSTTheRawBody(body string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	resp, err := http.Post(testCtx.HTTPTestServer.URL+"/v1/read", "application/json", //nolint:noctx // test request
		strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("POST /v1/read failed: %w", err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(expected int) error {
	if testCtx.LastHTTPStatusCode != expected {
		return fmt.Errorf("expected status %d, got %d\nBody: %s",
			expected, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)] == "" {
		return fmt.Errorf("response header %s is not set", name)
	}
	return nil
}

// theResponseJSONFieldShouldBe resolves a dotted path such as
// "results.errors.0.kind" and compares its printed value.
func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var current interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &current); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return fmt.Errorf("field %s not found in %s", part, testCtx.LastHTTPResponse)
			}
			current = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return fmt.Errorf("index %s out of range in %s", part, field)
			}
			current = node[i]
		default:
			return fmt.Errorf("cannot descend into %s of %s", part, field)
		}
	}
	if got := fmt.Sprint(current); got != expected {
		return fmt.Errorf("%s is %s, want %s", field, got, expected)
	}
	return nil
}

// theResultsShouldBe compares the tolerant results array, rendering each
// slot as "ok" or "null".
func (testCtx *TestContext) theResultsShouldBe(expected string) error {
	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	got := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		if string(r) == "null" {
			got[i] = "null"
		} else {
			got[i] = "ok"
		}
	}
	if strings.Join(got, ",") != expected {
		return fmt.Errorf("results are %s, want %s", strings.Join(got, ","), expected)
	}
	return nil
}

// iStreamAReadRequest sends a request over the websocket and records the
// type of every message up to and including the terminal one.
func (testCtx *TestContext) iStreamAReadRequest(names string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	body, err := testCtx.readRequestBody(names, "")
	if err != nil {
		return err
	}

	url := "ws" + strings.TrimPrefix(testCtx.HTTPTestServer.URL, "http") + "/v1/ws/read"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
		_ = conn.Close()
	}()

	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var types []string
	for {
		var msg server.WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("websocket read failed: %w", err)
		}
		types = append(types, msg.Type)
		if msg.Type == server.MessageDone || msg.Type == server.MessageError {
			break
		}
	}
	testCtx.LastHTTPResponse = strings.Join(types, ",")
	return nil
}

func (testCtx *TestContext) theStreamShouldBe(expected string) error {
	if testCtx.LastHTTPResponse != expected {
		return fmt.Errorf("stream was %s, want %s", testCtx.LastHTTPResponse, expected)
	}
	return nil
}

// RegisterServerSteps registers the HTTP and websocket steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the imread server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST a read request for "([^"]*)" in mode "([^"]*)"$`, testCtx.iPOSTAReadRequestInMode)
	sc.Step(`^I POST the raw body '([^']*)'$`, testCtx.iPOSTTheRawBody)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be set$`, testCtx.theResponseHeaderShouldBeSet)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the results should be "([^"]*)"$`, testCtx.theResultsShouldBe)
	sc.Step(`^I stream a read request for "([^"]*)" over the websocket$`, testCtx.iStreamAReadRequest)
	sc.Step(`^the stream should be "([^"]*)"$`, testCtx.theStreamShouldBe)
}
