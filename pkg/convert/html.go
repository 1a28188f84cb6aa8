package convert

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// HTMLRenderer turns a local HTML file or a remote page into a PDF.
type HTMLRenderer interface {
	Name() string
	Available() bool
	Render(ctx context.Context, target, output string) error
	Close() error
}

// Engine names accepted in configuration.
const (
	EngineWkhtmltopdf = "wkhtmltopdf"
	EngineChromium    = "chromium"
)

// WkhtmltopdfRenderer shells out to wkhtmltopdf.
type WkhtmltopdfRenderer struct {
	bin     tool
	timeout time.Duration
}

func NewWkhtmltopdfRenderer(path string, timeout time.Duration) *WkhtmltopdfRenderer {
	return &WkhtmltopdfRenderer{
		bin: tool{
			name:       "wkhtmltopdf",
			configured: path,
			hint:       "Install it to enable HTML/URL conversion.",
		},
		timeout: timeout,
	}
}

func (r *WkhtmltopdfRenderer) Name() string    { return EngineWkhtmltopdf }
func (r *WkhtmltopdfRenderer) Available() bool { return r.bin.available() }
func (r *WkhtmltopdfRenderer) Close() error    { return nil }

func (r *WkhtmltopdfRenderer) Render(ctx context.Context, target, output string) error {
	_, err := runTool(ctx, r.bin, r.timeout, "", "--quiet", target, output)
	if err != nil {
		return err
	}
	if _, err := os.Stat(output); err != nil {
		return &ToolError{Tool: r.bin.name, Output: "wkhtmltopdf did not produce a PDF output"}
	}
	return nil
}

// ChromiumRenderer prints pages through a headless Chromium driven over CDP.
// The browser is launched on first use and shared by all renders.
type ChromiumRenderer struct {
	bin     string
	timeout time.Duration

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewChromiumRenderer(bin string, timeout time.Duration) *ChromiumRenderer {
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	return &ChromiumRenderer{bin: bin, timeout: timeout}
}

func (r *ChromiumRenderer) Name() string { return EngineChromium }

func (r *ChromiumRenderer) binary() (string, bool) {
	if r.bin != "" {
		path, err := lookPath(r.bin)
		return path, err == nil
	}
	return launcher.LookPath()
}

func (r *ChromiumRenderer) Available() bool {
	_, ok := r.binary()
	return ok
}

func (r *ChromiumRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	bin, ok := r.binary()
	if !ok {
		return nil, &ToolMissingError{Tool: "chromium", Hint: "Install Chromium or Chrome to enable HTML/URL conversion."}
	}

	l := launcher.New().
		Bin(bin).
		Headless(true).
		NoSandbox(os.Geteuid() == 0)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &ToolError{Tool: "chromium", ExitCode: -1, Output: fmt.Sprintf("failed to launch: %v", err)}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, &ToolError{Tool: "chromium", ExitCode: -1, Output: fmt.Sprintf("failed to connect to CDP: %v", err)}
	}

	log.Info().Str("bin", bin).Msg("Headless Chromium started")

	r.launcher = l
	r.browser = browser
	return browser, nil
}

func (r *ChromiumRenderer) Render(ctx context.Context, target, output string) error {
	browser, err := r.connect()
	if err != nil {
		return err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return &ToolError{Tool: "chromium", ExitCode: -1, Output: fmt.Sprintf("failed to create page: %v", err)}
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(r.timeout)

	if err := page.Navigate(target); err != nil {
		return &ToolError{Tool: "chromium", ExitCode: -1, Output: fmt.Sprintf("failed to navigate to %s: %v", target, err)}
	}
	if err := page.WaitLoad(); err != nil {
		return &ToolError{Tool: "chromium", ExitCode: -1, Output: fmt.Sprintf("page did not load: %v", err)}
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return &ToolError{Tool: "chromium", ExitCode: -1, Output: fmt.Sprintf("print to PDF failed: %v", err)}
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		os.Remove(output)
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return f.Close()
}

func (r *ChromiumRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Kill()
	r.browser = nil
	r.launcher = nil
	return err
}

// NewHTMLRenderer builds the renderer for engine. Unknown engines fall back
// to wkhtmltopdf.
func NewHTMLRenderer(engine, wkhtmltopdfPath, chromiumPath string, timeout time.Duration) HTMLRenderer {
	if strings.EqualFold(engine, EngineChromium) {
		return NewChromiumRenderer(chromiumPath, timeout)
	}
	return NewWkhtmltopdfRenderer(wkhtmltopdfPath, timeout)
}

// HTMLConverter renders HTML files and URLs with the configured engine.
type HTMLConverter struct {
	renderer   HTMLRenderer
	allowLocal bool
}

func NewHTMLConverter(renderer HTMLRenderer, allowLocal bool) *HTMLConverter {
	return &HTMLConverter{renderer: renderer, allowLocal: allowLocal}
}

func (c *HTMLConverter) ConvertFile(ctx context.Context, input, output string) Result {
	if err := requireCategory(input, CategoryHTML); err != nil {
		return failed(err)
	}
	if err := requireFile(input); err != nil {
		return failed(err)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return failed(err)
	}
	target := abs
	if c.renderer.Name() == EngineChromium {
		target = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}

	if err := c.renderer.Render(ctx, target, output); err != nil {
		return failed(err)
	}

	inBytes, _ := fileSize(input)
	outBytes, err := fileSize(output)
	if err != nil {
		return failed(err)
	}
	return succeeded(Result{
		OutputPath:  output,
		InputBytes:  inBytes,
		OutputBytes: outBytes,
		Format:      Ext(input),
	})
}

func (c *HTMLConverter) ConvertURL(ctx context.Context, rawURL, output string) Result {
	u, err := ValidateURL(rawURL, c.allowLocal)
	if err != nil {
		return failed(err)
	}

	if err := c.renderer.Render(ctx, u.String(), output); err != nil {
		return failed(err)
	}

	outBytes, err := fileSize(output)
	if err != nil {
		return failed(err)
	}
	return succeeded(Result{
		OutputPath:  output,
		OutputBytes: outBytes,
		Format:      "url",
	})
}

func (c *HTMLConverter) Close() error { return c.renderer.Close() }

// ValidateURL accepts absolute http(s) URLs. Loopback, private and
// link-local hosts are refused unless allowLocal is set.
func ValidateURL(rawURL string, allowLocal bool) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: only http and https URLs are supported", ErrInvalidURL)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if !allowLocal && isLocalHost(host) {
		return nil, fmt.Errorf("%w: local addresses are not allowed", ErrInvalidURL)
	}
	return u, nil
}

func isLocalHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
