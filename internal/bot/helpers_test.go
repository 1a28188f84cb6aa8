package bot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/harun/doc2pdf/pkg/commandqueue"
	"github.com/harun/doc2pdf/pkg/convert"
	"github.com/harun/doc2pdf/pkg/session"
	"github.com/stretchr/testify/require"
)

type sentDoc struct {
	ChatID  int64
	Path    string
	Caption string
	Existed bool
	Data    []byte
}

// fakeTransport records everything the orchestrator sends.
type fakeTransport struct {
	mu       sync.Mutex
	texts    []string
	docs     []sentDoc
	statuses []*fakeStatus
	files    map[string][]byte

	docErr   error
	docDelay time.Duration
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{files: make(map[string][]byte)}
}

func (f *fakeTransport) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeTransport) SendDocument(ctx context.Context, chatID int64, path, caption string) error {
	if f.docDelay > 0 {
		select {
		case <-time.After(f.docDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	data, err := os.ReadFile(path)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, sentDoc{ChatID: chatID, Path: path, Caption: caption, Existed: err == nil, Data: data})
	return f.docErr
}

func (f *fakeTransport) Download(ctx context.Context, fileID, destPath string) (int64, error) {
	f.mu.Lock()
	data, ok := f.files[fileID]
	f.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("download failed with status: 404")
	}
	if err := os.WriteFile(destPath, data, 0600); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (f *fakeTransport) StartStatus(ctx context.Context, chatID int64, text string) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &fakeStatus{texts: []string{text}}
	f.statuses = append(f.statuses, st)
	return st, nil
}

func (f *fakeTransport) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *fakeTransport) sentDocs() []sentDoc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentDoc(nil), f.docs...)
}

func (f *fakeTransport) lastStatus() *fakeStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil
	}
	return f.statuses[len(f.statuses)-1]
}

type fakeStatus struct {
	mu       sync.Mutex
	texts    []string
	finished bool
}

func (s *fakeStatus) Update(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeStatus) Finish(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	s.finished = true
	return nil
}

func (s *fakeStatus) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.texts[len(s.texts)-1]
}

type fixture struct {
	orch      *Orchestrator
	transport *fakeTransport
	converter *convert.Dispatcher
	sessions  *session.Store
	queue     *commandqueue.CommandQueue
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	d, err := convert.NewDispatcher(convert.Config{WorkDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	q := commandqueue.New(commandqueue.Options{ToolConcurrency: 2})
	t.Cleanup(func() { _ = q.Close() })

	sessions := session.NewStore()
	t.Cleanup(sessions.Close)

	tr := newFakeTransport()
	return &fixture{
		orch:      New(opts, tr, d, sessions, q),
		transport: tr,
		converter: d,
		sessions:  sessions,
		queue:     q,
	}
}

// run submits the handler for command and waits for it to finish.
func (f *fixture) run(t *testing.T, userID int64, command string, args ...string) {
	t.Helper()
	req := Request{UserID: userID, ChatID: userID, Command: command, Args: args}
	select {
	case err := <-f.orch.Dispatch(context.Background(), req):
		require.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatalf("/%s did not finish", command)
	}
}

// receive copies src into the work dir as an upload and routes it.
func (f *fixture) receive(t *testing.T, userID int64, src, name string) string {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	path := f.converter.TempPath("upload", convert.Ext(name))
	require.NoError(t, os.WriteFile(path, data, 0600))

	req := Request{UserID: userID, ChatID: userID}
	done := f.orch.Submit(context.Background(), req, func(ctx context.Context, req Request) error {
		return f.orch.FileReceived(ctx, req, path, name)
	})
	require.NoError(t, <-done)
	return path
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 9), B: 80, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, img))
	require.NoError(t, out.Close())
	return path
}

func writePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, fmt.Sprintf("%s page %d", name, i))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}
