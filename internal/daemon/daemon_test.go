package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/doc2pdf/internal/config"
	"github.com/harun/doc2pdf/internal/logger"
	"github.com/harun/doc2pdf/internal/telegram"
	"github.com/harun/doc2pdf/pkg/commandqueue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:test-token"

// botAPI answers the handful of methods the daemon calls at start-up.
type botAPI struct {
	mu      sync.Mutex
	methods []string
}

func (b *botAPI) called(method string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.methods {
		if m == method {
			return true
		}
	}
	return false
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	b.mu.Lock()
	b.methods = append(b.methods, method)
	b.mu.Unlock()

	var result interface{}
	switch method {
	case "getMe":
		result = map[string]interface{}{"id": 1, "is_bot": true, "first_name": "Doc", "username": "doc2pdf_test_bot"}
	case "getUpdates":
		time.Sleep(20 * time.Millisecond)
		result = []interface{}{}
	default:
		result = true
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}

// withFakeTelegram points newTelegramBot at a local server.
func withFakeTelegram(t *testing.T) *botAPI {
	t.Helper()
	api := &botAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	orig := newTelegramBot
	newTelegramBot = func(cfg *config.TelegramConfig, log zerolog.Logger) (*telegram.Bot, error) {
		client, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, srv.URL+"/bot%s/%s", srv.Client())
		if err != nil {
			return nil, err
		}
		return telegram.NewWithAPI(cfg, client, log), nil
	}
	t.Cleanup(func() { newTelegramBot = orig })
	return api
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Telegram.BotToken = testToken
	cfg.Conversion.WorkDir = filepath.Join(dir, "work")
	cfg.Logging.AuditFile = filepath.Join(dir, "audit.log")
	return cfg
}

func createTestDaemon(t *testing.T) (*Daemon, *botAPI) {
	t.Helper()
	api := withFakeTelegram(t)

	log, err := logger.New(logger.Config{Level: "info", Console: false})
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	d, err := New(testConfig(t), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if d.Status().Running {
			_ = d.Stop()
			return
		}
		_ = d.queue.Close()
	})
	return d, api
}

func TestNew(t *testing.T) {
	d, _ := createTestDaemon(t)

	assert.NotNil(t, d.queue)
	assert.NotNil(t, d.sessions)
	assert.NotNil(t, d.converter)
	assert.NotNil(t, d.janitor)
	assert.NotNil(t, d.orchestrator)
	assert.NotNil(t, d.eventLoop)
	assert.NotNil(t, d.lifecycle)
	assert.DirExists(t, d.config.Conversion.WorkDir)
}

func TestNew_TelegramFailure(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "info"})
	require.NoError(t, err)
	defer log.Close()

	cfg := testConfig(t)
	cfg.Telegram.BotToken = ""

	d, err := New(cfg, log)
	assert.Nil(t, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot token is required")
}

func TestDaemonStartStop(t *testing.T) {
	d, api := createTestDaemon(t)

	require.NoError(t, d.Start())
	assert.True(t, d.Status().Running)
	assert.Error(t, d.Start())

	assert.FileExists(t, PIDFilePath(d.config.DataDir))
	assert.True(t, d.telegramBot.IsRunning())
	assert.Eventually(t, func() bool { return api.called("setMyCommands") }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, d.Stop())
	assert.False(t, d.Status().Running)
	assert.NoFileExists(t, PIDFilePath(d.config.DataDir))
	assert.Error(t, d.Stop())
}

func TestDaemonStop_DeletesPendingFiles(t *testing.T) {
	d, _ := createTestDaemon(t)
	require.NoError(t, d.Start())

	pending := filepath.Join(d.config.Conversion.WorkDir, "upload_x.png")
	require.NoError(t, os.WriteFile(pending, []byte("x"), 0600))
	d.sessions.Get(5).Inputs().Add(pending)

	require.NoError(t, d.Stop())
	assert.NoFileExists(t, pending)
}

func TestDaemonStatus(t *testing.T) {
	d, _ := createTestDaemon(t)

	status := d.Status()
	assert.False(t, status.Running)
	assert.Equal(t, time.Duration(0), status.Uptime)

	require.NoError(t, d.Start())
	defer d.Stop()

	time.Sleep(20 * time.Millisecond)
	d.sessions.Get(1)
	status = d.Status()
	assert.True(t, status.Running)
	assert.Greater(t, status.Uptime, time.Duration(0))
	assert.Equal(t, 1, status.Sessions)
}

func TestDaemonStatus_CountsQueueTasks(t *testing.T) {
	d, _ := createTestDaemon(t)

	_, err := d.queue.Enqueue(commandqueue.UserLane(1), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, nil)
	require.NoError(t, err)
	_, err = d.queue.Enqueue(commandqueue.UserLane(1), func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("conversion failed")
	}, nil)
	require.Error(t, err)

	assert.Eventually(t, func() bool {
		s := d.Status()
		return s.TasksDone == 1 && s.TasksFailed == 1
	}, time.Second, 5*time.Millisecond)

	status := d.Status()
	assert.Equal(t, 0, status.ToolsQueued)
	assert.Equal(t, 0, status.ToolsRunning)
}

func TestDaemonStatus_ActiveSessions(t *testing.T) {
	d, _ := createTestDaemon(t)

	d.sessions.Get(1).Touch()
	d.sessions.Get(2)

	status := d.Status()
	assert.Equal(t, 2, status.Sessions)
	assert.Equal(t, 2, status.ActiveSessions)
}

func TestDaemonGetters(t *testing.T) {
	d, _ := createTestDaemon(t)

	assert.NotNil(t, d.GetConfig())
	assert.NotNil(t, d.GetQueue())
	assert.NotNil(t, d.GetSessions())
	assert.NotNil(t, d.GetTelegramBot())
	assert.NotNil(t, d.GetOrchestrator())
}
