// Package httpclient is a plugin that performs HTTP requests on behalf of
// its callers, retrying transport failures with a linear backoff.
package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-resty/resty/v2"

	"github.com/zero-day-ai/bolt/health"
	"github.com/zero-day-ai/bolt/input"
	"github.com/zero-day-ai/bolt/plugin"
	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/types"
)

const (
	// ID is the plugin id.
	ID = "http-client-plugin"
	// Version is the plugin version.
	Version = "1.0.0"

	// CodeRequestFailed is returned when every attempt failed at the
	// transport level.
	CodeRequestFailed = "HTTP_REQUEST_FAILED"
)

// Settings are the HTTP client plugin properties.
type Settings struct {
	// DefaultTimeout is the per-attempt timeout in milliseconds.
	DefaultTimeout int `json:"defaultTimeout" default:"30000" validate:"gte=0"`
	// DefaultRetryCount is the total number of attempts per request.
	DefaultRetryCount int `json:"defaultRetryCount" default:"3" validate:"gte=0"`
	// RetryBackoff is the backoff unit in milliseconds; attempt n waits
	// n*RetryBackoff before the next one.
	RetryBackoff int `json:"retryBackoff" default:"1000" validate:"gte=0"`
	// HealthCheckURL, when set, is dialed on every health check. Only its
	// host and port are used.
	HealthCheckURL string `json:"healthCheckUrl" validate:"omitempty,url"`
}

// DefaultSettings returns the settings used for absent properties.
func DefaultSettings() Settings {
	var s Settings
	defaults.MustSet(&s)
	return s
}

type httpPlugin struct {
	settings Settings
	client   *resty.Client
	check    health.Check
	logger   *slog.Logger
}

// Definition returns the HTTP client plugin definition. Retry warnings go to
// logger, or slog.Default() when nil.
func Definition(logger *slog.Logger) *plugin.Definition {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("plugin_id", ID)

	def := plugin.NewDefinition()
	def.SetID(ID)
	def.SetVersion(Version)
	def.SetName("HTTP Client")
	def.SetDescription("Performs HTTP GET, POST, PUT, DELETE and arbitrary-method requests")
	def.SetAuthor("Bolt Team")
	def.SetType(types.PluginTypeCustom)
	def.SetDefaultConfig(`{"defaultTimeout":30000,"defaultRetryCount":3}`)
	def.SetInstanceFunc(func(inst *plugin.Definition) {
		h := &httpPlugin{logger: logger}
		inst.SetInitFunc(h.init)
		inst.SetDestroyFunc(h.destroy)
		inst.SetHealthFunc(h.health)
		inst.AddActionWithDesc("get", "GET url with optional headers", h.method(http.MethodGet, false))
		inst.AddActionWithDesc("post", "POST body to url", h.method(http.MethodPost, true))
		inst.AddActionWithDesc("put", "PUT body to url", h.method(http.MethodPut, true))
		inst.AddActionWithDesc("delete", "DELETE url", h.method(http.MethodDelete, false))
		inst.AddActionWithDesc("request", "Send a request with an explicit method", h.request)
	})
	return def
}

// New builds an HTTP client plugin instance.
func New(logger *slog.Logger, opts ...plugin.Option) (*plugin.Runtime, error) {
	if logger != nil {
		opts = append([]plugin.Option{plugin.WithLogger(logger)}, opts...)
	}
	return plugin.New(Definition(logger), opts...)
}

func (h *httpPlugin) init(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error {
	var settings Settings
	if err := cfg.Decode(&settings); err != nil {
		return err
	}
	if settings.HealthCheckURL != "" {
		addr, err := endpoint(settings.HealthCheckURL)
		if err != nil {
			return pluginerr.InvalidParam("healthCheckUrl", err.Error()).WithPlugin(ID)
		}
		h.check = health.EndpointCheck("upstream", addr, 5*time.Second)
	}
	h.settings = settings
	h.client = resty.New().
		SetRetryCount(0).
		SetHeader("User-Agent", "bolt-http-client/"+Version)

	h.logger.Info("http client ready",
		"default_timeout_ms", settings.DefaultTimeout,
		"default_retry_count", settings.DefaultRetryCount,
	)
	return nil
}

func (h *httpPlugin) destroy(ctx context.Context) error {
	if h.client != nil {
		h.client.GetClient().CloseIdleConnections()
	}
	return nil
}

func (h *httpPlugin) health(ctx context.Context) types.HealthStatus {
	if h.check == nil {
		return types.NewHealthyStatus("http client ready")
	}
	return h.check(ctx)
}

// endpoint returns the host:port a URL points at, defaulting the port from
// the scheme.
func endpoint(raw string) (string, error) {
	u, err := neturl.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		default:
			return "", fmt.Errorf("no port for scheme %q", u.Scheme)
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func (h *httpPlugin) method(method string, withBody bool) plugin.Handler {
	return func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
		url, err := input.RequireString(params, "url")
		if err != nil {
			return nil, err
		}
		var body any
		if withBody {
			body = params["body"]
		}
		return h.do(ctx, method, url, body, params)
	}
}

func (h *httpPlugin) request(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	method, err := input.RequireString(params, "method")
	if err != nil {
		return nil, err
	}
	url, err := input.RequireString(params, "url")
	if err != nil {
		return nil, err
	}
	return h.do(ctx, strings.ToUpper(method), url, params["body"], params)
}

// do sends the request, retrying transport errors. A response with any
// status code counts as success.
func (h *httpPlugin) do(ctx context.Context, method, url string, body any, params types.Params) (*types.Result, error) {
	timeout := time.Duration(input.GetInt(params, "timeout", h.settings.DefaultTimeout)) * time.Millisecond
	attempts := input.GetInt(params, "retryCount", h.settings.DefaultRetryCount)
	if attempts < 1 {
		attempts = 1
	}
	headers := input.GetStringMap(params, "headers")

	var lastErr error
	attempt := 0
	for attempt < attempts {
		attempt++

		resp, err := h.send(ctx, timeout, method, url, headers, body)
		if err == nil {
			return types.Success(map[string]any{
				"statusCode": resp.StatusCode(),
				"body":       resp.String(),
				"headers":    map[string][]string(resp.Header()),
				"attempt":    attempt,
			}), nil
		}

		lastErr = err
		h.logger.Warn("http request failed",
			"method", method,
			"url", url,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if attempt >= attempts {
			break
		}
		if !h.backoff(ctx, attempt) {
			break
		}
	}

	return nil, pluginerr.New(CodeRequestFailed,
		fmt.Sprintf("request failed after %d attempt(s)", attempt)).
		WithPlugin(ID).
		WithCause(lastErr)
}

func (h *httpPlugin) send(ctx context.Context, timeout time.Duration, method, url string, headers map[string]string, body any) (*resty.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := h.client.R().SetContext(ctx).SetHeaders(headers)
	switch b := body.(type) {
	case nil:
	case string:
		if b != "" {
			req.SetBody(b)
		}
	default:
		req.SetBody(b)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// backoff waits attempt*RetryBackoff. It returns false if ctx ended first.
func (h *httpPlugin) backoff(ctx context.Context, attempt int) bool {
	wait := time.Duration(attempt*h.settings.RetryBackoff) * time.Millisecond
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
