package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": 42,
				"chat":       map[string]any{"id": 7},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{Token: "test-token", BaseUrl: srv.URL})

	msg, err := client.SendMessage(context.Background(), 7, "hello", &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			KeyboardRow(InlineKeyboardButton{Text: "Go", CallbackData: "go"}),
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), msg.MessageId)
	require.Equal(t, int64(7), msg.Chat.Id)

	require.Equal(t, "/bottest-token/sendMessage", gotPath)
	require.Equal(t, "hello", gotBody["text"])
	require.Equal(t, float64(7), gotBody["chat_id"])
	require.NotNil(t, gotBody["reply_markup"])
}

func TestApiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{Token: "test-token", BaseUrl: srv.URL})

	_, err := client.SendMessage(context.Background(), 7, "hello", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 400")
}

type recordingHandler struct {
	mu      sync.Mutex
	updates []int64
	done    chan struct{}
	want    int
	cancel  context.CancelFunc
}

func (h *recordingHandler) HandleUpdate(ctx context.Context, update Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update.UpdateId)
	if len(h.updates) == h.want {
		h.cancel()
		close(h.done)
	}
}

func TestPollerAdvancesOffset(t *testing.T) {
	var mu sync.Mutex
	offsets := []int64{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)

		offset := int64(body["offset"].(float64))
		mu.Lock()
		offsets = append(offsets, offset)
		mu.Unlock()

		updates := []map[string]any{}
		if offset == 0 {
			updates = []map[string]any{
				{"update_id": 10},
				{"update_id": 11},
			}
		} else if offset == 12 {
			updates = []map[string]any{{"update_id": 12}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": updates})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{done: make(chan struct{}), want: 3, cancel: cancel}
	client := NewClient(ClientOptions{Token: "test-token", BaseUrl: srv.URL})

	go NewPoller(client, handler).Run(ctx)
	<-handler.done

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Equal(t, []int64{10, 11, 12}, handler.updates)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int64(0), offsets[0])
	require.Equal(t, int64(12), offsets[1])
}
