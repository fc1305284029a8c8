package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennantware/warbot/pkg/chat"
)

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, req recordedRequest)) (*Client, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		requests = append(requests, rec)
		handler(w, rec)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, BotToken: "token-1"})
	require.NoError(t, err)
	return client, &requests
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{BotToken: "t"})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://x"})
	require.Error(t, err)
}

func TestCreateThread(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "thread-9"})
	})

	id, err := client.CreateThread(context.Background(), "chan-1", "WAR計算-tester")
	require.NoError(t, err)
	assert.Equal(t, "thread-9", id)

	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/channels/chan-1/threads", req.path)
	assert.Equal(t, "Bot token-1", req.auth)
	assert.Equal(t, "WAR計算-tester", req.body["name"])
	assert.Equal(t, float64(privateThreadType), req.body["type"])
}

func TestCreateThread_MissingID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})

	_, err := client.CreateThread(context.Background(), "chan-1", "t")
	require.Error(t, err)
}

func TestAddMember(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.AddMember(context.Background(), "thread-9", "user-1"))

	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/channels/thread-9/thread-members/user-1", req.path)
}

func TestLockAndArchive(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "thread-9"})
	})

	require.NoError(t, client.LockAndArchive(context.Background(), "thread-9"))

	req := (*requests)[0]
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "/channels/thread-9", req.path)
	assert.Equal(t, true, req.body["locked"])
	assert.Equal(t, true, req.body["archived"])
}

func TestPost_PlainText(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "m1", "channel_id": "thread-9"})
	})

	ref, err := client.Post(context.Background(), "thread-9", chat.Text("こんにちは"))
	require.NoError(t, err)
	assert.Equal(t, chat.MessageRef{ChannelID: "thread-9", MessageID: "m1"}, ref)

	req := (*requests)[0]
	assert.Equal(t, "/channels/thread-9/messages", req.path)
	assert.Equal(t, "こんにちは", req.body["content"])
	assert.NotContains(t, req.body, "components")
	assert.NotContains(t, req.body, "embeds")
}

func TestPost_WithEmbedAndComponents(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "m2", "channel_id": "thread-9"})
	})

	msg := chat.Message{
		Content: "done",
		Embed: &chat.Embed{
			Title: "WAR計算結果",
			Color: 0x3498DB,
			Fields: []chat.EmbedField{
				{Name: "WAR", Value: "3.141", Inline: true},
			},
		},
		Picker: &chat.Picker{
			CustomID:    "war:field:thread-9",
			Placeholder: "pick",
			Options: []chat.PickerOption{
				{Label: "投球回", Value: "innings", Description: "現在: 143.333"},
			},
		},
		Buttons: []chat.Button{
			{CustomID: "war:end:thread-9", Label: "終了", Danger: true},
		},
	}

	_, err := client.Post(context.Background(), "thread-9", msg)
	require.NoError(t, err)

	body := (*requests)[0].body
	embeds := body["embeds"].([]any)
	require.Len(t, embeds, 1)
	assert.Equal(t, "WAR計算結果", embeds[0].(map[string]any)["title"])

	rows := body["components"].([]any)
	require.Len(t, rows, 2, "select row plus button row")

	selectRow := rows[0].(map[string]any)["components"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(componentSelect), selectRow["type"])
	assert.Equal(t, "war:field:thread-9", selectRow["custom_id"])

	buttonRow := rows[1].(map[string]any)["components"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(componentButton), buttonRow["type"])
	assert.Equal(t, float64(buttonStyleDanger), buttonRow["style"])
}

func TestStripComponents(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "m2"})
	})

	ref := chat.MessageRef{ChannelID: "thread-9", MessageID: "m2"}
	require.NoError(t, client.StripComponents(context.Background(), ref))

	req := (*requests)[0]
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "/channels/thread-9/messages/m2", req.path)
	components, ok := req.body["components"].([]any)
	require.True(t, ok)
	assert.Empty(t, components)
}

func TestErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		http.Error(w, `{"message":"Missing Permissions"}`, http.StatusForbidden)
	})

	_, err := client.CreateThread(context.Background(), "chan-1", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Missing Permissions")
}
