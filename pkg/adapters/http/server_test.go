package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow"
	httpadapter "github.com/convoflow/convoflow/pkg/adapters/http"
	"github.com/convoflow/convoflow/pkg/adapters/memory"
	"github.com/convoflow/convoflow/pkg/ports"
	"github.com/convoflow/convoflow/pkg/session"
)

const testPrompt = `[Greeting]
Hello! This is Priya from Meena Naturals. How are you today?

[Always ask name]
May I know your name please?

[Product Pitch]
We have a special offer on our herbal skincare range this week.
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	builder := func(prompt string) (ports.ConversationEngine, error) {
		return convoflow.CreateSectionBasedFlow(prompt)
	}
	sessions := session.NewManager(memory.NewStore())
	srv := httpadapter.NewServer(builder, sessions)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_CreateFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/flows", map[string]string{
		"id":     "sales",
		"prompt": testPrompt,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	summary := decode[map[string]any](t, resp)
	assert.Equal(t, "sales", summary["id"])

	order := summary["flow_order"].([]any)
	assert.Len(t, order, 3)
	assert.Equal(t, "greeting_0", order[0])
}

func TestServer_CreateFlow_HeaderlessPrompt(t *testing.T) {
	ts := newTestServer(t)

	// A document with no section headers still yields a one-step flow.
	resp := postJSON(t, ts.URL+"/flows", map[string]string{
		"id":     "plain",
		"prompt": "just some text without any sections",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	summary := decode[map[string]any](t, resp)
	order := summary["flow_order"].([]any)
	require.Len(t, order, 1)
	assert.Equal(t, "main_content_0", order[0])
}

func TestServer_CreateFlow_NoConversationalSteps(t *testing.T) {
	ts := newTestServer(t)

	// Support-only documents (an FAQ with no flow steps) cannot become flows.
	resp := postJSON(t, ts.URL+"/flows", map[string]string{
		"id":     "empty",
		"prompt": "[FAQ]\nQ: Do you ship abroad?\nA: Not yet.",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_GetGraph_Mermaid(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/flows", map[string]string{"id": "sales", "prompt": testPrompt})
	resp.Body.Close()

	graphResp, err := http.Get(ts.URL + "/flows/sales/graph")
	require.NoError(t, err)
	defer graphResp.Body.Close()
	require.Equal(t, http.StatusOK, graphResp.StatusCode)

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(graphResp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "graph TD")
	assert.Contains(t, buf.String(), "greeting_0")
}

// greetingArgs reads the greeting section's declared fields from the flow
// summary and fills them all, so the advance call is valid regardless of the
// field names the parser derived.
func greetingArgs(t *testing.T, summary map[string]any) map[string]any {
	t.Helper()
	args := map[string]any{}
	for _, raw := range summary["sections"].([]any) {
		section := raw.(map[string]any)
		if section["id"] != "greeting_0" {
			continue
		}
		if required, ok := section["required"].([]any); ok {
			for _, f := range required {
				args[f.(string)] = "sure"
			}
		}
	}
	return args
}

func TestServer_Advance_PersistsSession(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/flows", map[string]string{"id": "sales", "prompt": testPrompt})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	summary := decode[map[string]any](t, resp)

	resp = postJSON(t, ts.URL+"/flows/sales/sessions/s1/advance", map[string]any{
		"function": "collect_greeting_0",
		"args":     greetingArgs(t, summary),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	adv := decode[map[string]any](t, resp)
	node := adv["node"].(map[string]any)
	assert.Equal(t, "always_ask_name_1", node["id"])

	// Session state must be persisted and queryable.
	sessResp, err := http.Get(ts.URL + "/flows/sales/sessions/s1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, sessResp.StatusCode)

	state := decode[map[string]any](t, sessResp)
	assert.Equal(t, "always_ask_name_1", state["current_section_id"])
}

func TestServer_Advance_UnknownFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/flows/missing/sessions/s1/advance", map[string]any{
		"function": "collect_greeting_0",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_DeleteSession(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/flows", map[string]string{"id": "sales", "prompt": testPrompt})
	summary := decode[map[string]any](t, resp)

	resp = postJSON(t, ts.URL+"/flows/sales/sessions/s1/advance", map[string]any{
		"function": "collect_greeting_0",
		"args":     greetingArgs(t, summary),
	})
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/flows/sales/sessions/s1", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	sessResp, err := http.Get(ts.URL + "/flows/sales/sessions/s1")
	require.NoError(t, err)
	sessResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, sessResp.StatusCode)
}
