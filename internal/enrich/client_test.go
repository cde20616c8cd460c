package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", "test-model", 5*time.Second)
}

func textResponse(text string) []byte {
	resp := messagesResponse{Content: []contentBlock{{Type: "text", Text: text}}}
	data, _ := json.Marshal(resp)
	return data
}

func TestDescribe(t *testing.T) {
	var gotBody messagesRequest
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write(textResponse("Example app"))
	})

	desc, err := client.Describe(context.Background(), "Foo", "com.example.Foo")
	require.NoError(t, err)
	assert.Equal(t, "Example app", desc)
	assert.Equal(t, "test-model", gotBody.Model)
}

func TestDescribe_NameFallsBackToBundleID(t *testing.T) {
	var prompt string
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		prompt, _ = body.Messages[0].Content.(string)
		w.Write(textResponse("desc"))
	})

	_, err := client.Describe(context.Background(), "", "com.example.Bar")
	require.NoError(t, err)
	assert.Contains(t, prompt, `"com.example.Bar"`)
}

func TestDescribe_ServerError(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	_, err := client.Describe(context.Background(), "Foo", "com.example.Foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClassify(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// Second message is the assistant prefill with the opening brace.
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "assistant", body.Messages[1].Role)

		// The model continues the prefilled object, so the leading brace is
		// absent from the response text.
		w.Write(textResponse(`"category": "coding", "description": "Editing Go files"}`))
	})

	result, err := client.Classify(context.Background(), []byte("fake-png"))
	require.NoError(t, err)
	assert.Equal(t, "coding", result.Category)
	assert.Equal(t, "Editing Go files", result.Description)
}

func TestClassify_MissingFields(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(textResponse(`"category": "coding"}`))
	})

	_, err := client.Classify(context.Background(), []byte("fake-png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")
}

func TestClassify_UnknownCategory(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(textResponse(`"category": "juggling", "description": "Keeping balls in the air"}`))
	})

	_, err := client.Classify(context.Background(), []byte("fake-png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "juggling"`)
}

func TestClassify_UnparseableResponse(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(textResponse("not json at all"))
	})

	_, err := client.Classify(context.Background(), []byte("fake-png"))
	require.Error(t, err)
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(textResponse("too late"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "k", "m", 10*time.Millisecond)
	_, err := client.Describe(context.Background(), "Foo", "com.example.Foo")
	require.Error(t, err)
}
