package telegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/doc2pdf/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testToken = "123:test-token"

type apiCall struct {
	Method string
	Form   url.Values
}

// fakeAPI is a minimal Bot API server.
type fakeAPI struct {
	srv *httptest.Server

	mu        sync.Mutex
	calls     []apiCall
	nextMsgID int
	files     map[string][]byte // file_id -> content
	sizes     map[string]int    // declared size override
	updates   []tgbotapi.Update
	delay     map[string]time.Duration
	failWhen  func(method string, form url.Values) string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		files: make(map[string][]byte),
		sizes: make(map[string]int),
		delay: make(map[string]time.Duration),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/") {
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		f.mu.Lock()
		data, ok := f.files[id]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
		return
	}

	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		_ = r.ParseMultipartForm(32 << 20)
	} else {
		_ = r.ParseForm()
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Form: r.Form})
	delay := f.delay[method]
	failWhen := f.failWhen
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if failWhen != nil {
		if desc := failWhen(method, r.Form); desc != "" {
			writeJSON(w, map[string]interface{}{"ok": false, "error_code": 400, "description": desc})
			return
		}
	}

	switch method {
	case "getMe":
		writeResult(w, map[string]interface{}{"id": 42, "is_bot": true, "first_name": "Test", "username": "testbot"})
	case "sendMessage", "sendDocument", "editMessageText":
		chatID, _ := strconv.ParseInt(r.Form.Get("chat_id"), 10, 64)
		f.mu.Lock()
		f.nextMsgID++
		id := f.nextMsgID
		f.mu.Unlock()
		if method == "editMessageText" {
			id, _ = strconv.Atoi(r.Form.Get("message_id"))
		}
		writeResult(w, map[string]interface{}{
			"message_id": id,
			"date":       0,
			"chat":       map[string]interface{}{"id": chatID, "type": "private"},
		})
	case "getFile":
		id := r.Form.Get("file_id")
		f.mu.Lock()
		size, ok := f.sizes[id]
		if !ok {
			size = len(f.files[id])
		}
		f.mu.Unlock()
		writeResult(w, map[string]interface{}{"file_id": id, "file_unique_id": "u" + id, "file_size": size, "file_path": "documents/" + id})
	case "setMyCommands":
		writeResult(w, true)
	case "getUpdates":
		f.mu.Lock()
		updates := f.updates
		f.updates = nil
		f.mu.Unlock()
		if len(updates) == 0 {
			time.Sleep(20 * time.Millisecond)
			updates = []tgbotapi.Update{}
		}
		writeResult(w, updates)
	default:
		writeJSON(w, map[string]interface{}{"ok": false, "error_code": 404, "description": "Not Found: " + method})
	}
}

func writeResult(w http.ResponseWriter, result interface{}) {
	writeJSON(w, map[string]interface{}{"ok": true, "result": result})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) addFile(id string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id] = data
}

func newTestBot(t *testing.T, f *fakeAPI, cfg *config.TelegramConfig) *Bot {
	t.Helper()
	if cfg == nil {
		cfg = &config.TelegramConfig{BotToken: testToken, MaxDownloadMB: 1}
	}
	api, err := tgbotapi.NewBotAPIWithClient(testToken, f.srv.URL+"/bot%s/%s", f.srv.Client())
	require.NoError(t, err)

	bot := NewWithAPI(cfg, api, zerolog.Nop())
	bot.httpClient = f.srv.Client()
	bot.fileEndpoint = f.srv.URL + "/file/bot%s/%s"
	return bot
}

func commandUpdate(updateID int, userID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{
		UpdateID: updateID,
		Message: &tgbotapi.Message{
			MessageID: updateID,
			From:      &tgbotapi.User{ID: userID, UserName: fmt.Sprintf("user%d", userID)},
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
			Text:      text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(cmd)},
			},
		},
	}
}
