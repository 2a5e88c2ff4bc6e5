// Package handoff moves a finished order transcript to the Messenger
// conversation of the store.
package handoff

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
)

type Platform string

const (
	PlatformMobile  Platform = "mobile"
	PlatformDesktop Platform = "desktop"
)

var mobileUserAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// DetectPlatform classifies a User-Agent. Resolve it once per submission and
// pass the result along.
func DetectPlatform(userAgent string) Platform {
	if mobileUserAgent.MatchString(userAgent) {
		return PlatformMobile
	}
	return PlatformDesktop
}

func ParsePlatform(s string) (Platform, bool) {
	switch Platform(strings.ToLower(s)) {
	case PlatformMobile:
		return PlatformMobile, true
	case PlatformDesktop:
		return PlatformDesktop, true
	}
	return "", false
}

const (
	DefaultPageName   = "DanielsSLK"
	DefaultThreadID   = "111896790519879"
	DefaultWarnLength = 8000

	mobileWebBase  = "https://m.me/"
	desktopWebBase = "https://www.messenger.com/t/"
	appThreadBase  = "fb-messenger://user-thread/"
)

type Config struct {
	PageName   string
	ThreadID   string
	WarnLength int
}

func ConfigFrom(config *apt.Config) Config {
	cfg := Config{
		PageName:   config.GetStringOrDef("handoff.messenger.page", DefaultPageName),
		ThreadID:   config.GetStringOrDef("handoff.messenger.thread_id", DefaultThreadID),
		WarnLength: DefaultWarnLength,
	}
	if v, ok := config.GetString("handoff.url.warn_length"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WarnLength = n
		}
	}
	return cfg
}

// Links are the hand-off targets for one submission. App carries no payload;
// the user pastes the transcript there.
type Links struct {
	Web string `json:"web"`
	App string `json:"app,omitempty"`
}

type Strategy struct {
	cfg    Config
	logger apt.Logger
}

func NewStrategy(cfg Config, logger apt.Logger) *Strategy {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if cfg.PageName == "" {
		cfg.PageName = DefaultPageName
	}
	if cfg.ThreadID == "" {
		cfg.ThreadID = DefaultThreadID
	}
	if cfg.WarnLength <= 0 {
		cfg.WarnLength = DefaultWarnLength
	}
	return &Strategy{cfg: cfg, logger: logger}
}

// Links builds the targets for the platform. Long payloads are never
// truncated, only reported.
func (s *Strategy) Links(p Platform, transcript string) Links {
	text := encodeText(transcript)
	page := url.PathEscape(s.cfg.PageName)

	var links Links
	switch p {
	case PlatformMobile:
		links = Links{
			Web: mobileWebBase + page + "?text=" + text,
			App: appThreadBase + url.PathEscape(s.cfg.ThreadID),
		}
	default:
		links = Links{Web: desktopWebBase + page + "?text=" + text}
	}

	if len(links.Web) > s.cfg.WarnLength {
		s.logger.Info("hand-off link exceeds recommended length",
			"platform", string(p), "length", len(links.Web), "limit", s.cfg.WarnLength)
	}

	return links
}

// encodeText escapes like a URI component: spaces become %20, not '+'.
func encodeText(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ClearBrowserState asks the browser to drop every cookie and its local and
// session storage. It cannot fail the response.
func ClearBrowserState(w http.ResponseWriter, r *http.Request) {
	for _, c := range r.Cookies() {
		http.SetCookie(w, &http.Cookie{
			Name:    c.Name,
			Value:   "",
			Path:    "/",
			Expires: time.Unix(0, 0),
			MaxAge:  -1,
		})
	}
	w.Header().Set("Clear-Site-Data", `"cookies", "storage"`)
}

// Navigate clears browser state and sends the browser to target.
func Navigate(w http.ResponseWriter, r *http.Request, target string) {
	ClearBrowserState(w, r)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
