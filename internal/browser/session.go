package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/whatchicken/slack-dm-scraper/internal"
)

// Options controls how the Slack tab is reached
type Options struct {
	// DebuggerURL is a DevTools websocket URL or host:port of a running Chrome
	DebuggerURL string
	// Launch starts a dedicated Chrome when no DebuggerURL is set
	Launch   bool
	Headless bool
	// URL is opened when no tab on Host exists
	URL       string
	Host      string
	Selectors internal.Selectors
}

// OptionsFromConfig converts the browser config section
func OptionsFromConfig(c internal.BrowserConfig) Options {
	return Options{
		DebuggerURL: c.DebuggerURL,
		Launch:      c.Launch,
		Headless:    c.Headless,
		URL:         c.URL,
		Host:        c.Host,
		Selectors:   c.Selectors,
	}
}

// Session is a connection to one Slack tab
type Session struct {
	browser  *rod.Browser
	page     *rod.Page
	launched *launcher.Launcher
	driver   *Driver
}

// Open connects to Chrome and selects the Slack tab
func Open(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{}

	controlURL := opts.DebuggerURL
	if controlURL != "" {
		resolved, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, fmt.Errorf("resolve debugger url %s: %w", controlURL, err)
		}
		controlURL = resolved
	} else {
		if !opts.Launch {
			return nil, errors.New("no debugger url configured: start Chrome with --remote-debugging-port and set CHROME_DEBUGGER_URL, or pass --launch")
		}
		s.launched = launcher.New().Headless(opts.Headless)
		u, err := s.launched.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	s.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := s.findPage(opts.Host)
	if err != nil {
		s.cleanup()
		return nil, err
	}
	if page == nil {
		internal.LogInfo("no open tab on %s, opening %s", opts.Host, opts.URL)
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: opts.URL})
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("open %s: %w", opts.URL, err)
		}
		if err := page.WaitLoad(); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("wait for %s: %w", opts.URL, err)
		}
	}

	s.page = page
	s.driver = newDriver(pageEvaluator{page: page}, opts.Selectors)
	return s, nil
}

func (s *Session) findPage(host string) (*rod.Page, error) {
	pages, err := s.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			internal.LogDebug("tab info: %v", err)
			continue
		}
		if host != "" && strings.Contains(info.URL, host) {
			internal.LogDebug("using tab %s (%s)", info.Title, info.URL)
			return p, nil
		}
	}
	return nil, nil
}

// Driver returns the ViewDriver for the selected tab
func (s *Session) Driver() *Driver {
	return s.driver
}

// Credentials reads the API token, channel and session cookies from the tab.
// Fields the page does not expose are left empty.
func (s *Session) Credentials(ctx context.Context) (Credentials, error) {
	creds, err := s.driver.pageCredentials(ctx)
	if err != nil {
		return Credentials{}, err
	}

	cookies, err := s.page.Context(ctx).Cookies([]string{"https://slack.com", "https://app.slack.com"})
	if err != nil {
		internal.LogWarn("could not read session cookies: %v", err)
		return creds, nil
	}
	creds.Cookies = make(map[string]string, len(cookies))
	for _, c := range cookies {
		creds.Cookies[c.Name] = c.Value
	}
	return creds, nil
}

// Close releases the browser if this session launched it. An attached
// browser is left running.
func (s *Session) Close() error {
	if s.launched == nil {
		return nil
	}
	err := s.browser.Close()
	s.launched.Cleanup()
	return err
}

func (s *Session) cleanup() {
	if s.launched != nil {
		s.launched.Kill()
		s.launched.Cleanup()
	}
}

type pageEvaluator struct {
	page *rod.Page
}

func (e pageEvaluator) Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error) {
	res, err := e.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("empty evaluation result")
	}
	return res.Value.MarshalJSON()
}
