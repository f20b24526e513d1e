package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/logging"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/services"
)

const (
	// defaultRateLimitBackoff is the cooldown applied when a 429 carries no
	// usable retry-after signal.
	defaultRateLimitBackoff = 15 * time.Minute
	// defaultHandleDomain completes bare account names.
	defaultHandleDomain = "bsky.social"

	postCollection = "app.bsky.feed.post"
	embedImagesTag = "app.bsky.embed.images"

	createSessionPath = "/xrpc/com.atproto.server.createSession"
	uploadBlobPath    = "/xrpc/com.atproto.repo.uploadBlob"
	createRecordPath  = "/xrpc/com.atproto.repo.createRecord"

	envHandle      = "BLUESKY_HANDLE"
	envAppPassword = "BLUESKY_APP_PASSWORD"
)

type authState int

const (
	stateUnauthenticated authState = iota
	stateAuthenticating
	stateAuthenticated
	stateLoginFailed
)

// session holds the per-run credentials returned by createSession. It is set
// once on first publish and never refreshed.
type session struct {
	accessToken string
	actorID     string
}

// CooldownSink persists the cross-run rate-limit marker.
type CooldownSink interface {
	SetCooldownUntil(ctx context.Context, until *time.Time) error
}

// HTTPDoer describes the HTTP client used to reach the PDS.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client publishes posts to a single PDS for the lifetime of one process run.
type Client struct {
	cfg       *config.Bluesky
	baseURL   string
	client    HTTPDoer
	cooldowns CooldownSink
	logger    *slog.Logger

	state   authState
	session session

	now func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithClock overrides the time source used for cooldown computation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a publish client. The cooldown sink is required so a
// rate-limit response can reach future process runs; the logger may be nil.
func NewClient(cfg *config.Bluesky, cooldowns CooldownSink, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		cfg:       cfg,
		baseURL:   strings.TrimRight(cfg.PDSURL, "/"),
		client:    &http.Client{Timeout: timeout},
		cooldowns: cooldowns,
		logger:    logging.WithComponent(logger, "bluesky"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish uploads the image and creates a post record embedding it. The text
// is truncated to the post length limit. Requires a usable session; the
// first call authenticates, and after a login failure every later call
// fails immediately.
func (c *Client) Publish(ctx context.Context, text string, image []byte, imageURL string) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	blob, err := c.uploadBlob(ctx, image, contentTypeForURL(imageURL))
	if err != nil {
		return err
	}

	uri, err := c.createPost(ctx, TruncatePost(text), blob)
	if err != nil {
		return err
	}
	c.logger.Info("published post", logging.String("uri", uri))
	return nil
}

// ensureSession drives the login state machine. It runs the network login at
// most once per process; terminal failure latches.
func (c *Client) ensureSession(ctx context.Context) error {
	switch c.state {
	case stateAuthenticated:
		return nil
	case stateLoginFailed:
		return services.Wrap(services.ErrAuthentication, "bluesky", "login",
			"previous login failure in this run", nil)
	}

	c.state = stateAuthenticating
	if err := c.login(ctx); err != nil {
		c.state = stateLoginFailed
		c.logger.Error("login failed", logging.Error(err))
		return err
	}
	c.state = stateAuthenticated
	return nil
}

func (c *Client) login(ctx context.Context) error {
	identifier, password, err := resolveCredentials(c.cfg)
	if err != nil {
		return err
	}
	identifier = NormalizeHandle(identifier)
	c.logger.Debug("logging in", logging.String("handle", identifier))

	payload, err := json.Marshal(createSessionRequest{Identifier: identifier, Password: password})
	if err != nil {
		return services.Wrap(services.ErrAuthentication, "bluesky", "login", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createSessionPath, bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrAuthentication, "bluesky", "login", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrAuthentication, "bluesky", "login", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrAuthentication, "bluesky", "login", "read response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return c.handleRateLimit(ctx, resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrAuthentication, "bluesky", "login",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed createSessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return services.Wrap(services.ErrAuthentication, "bluesky", "login", "decode response", err)
	}
	if parsed.AccessJwt == "" || parsed.DID == "" {
		return services.Wrap(services.ErrProtocol, "bluesky", "login", "session response missing accessJwt or did", nil)
	}

	c.session = session{accessToken: parsed.AccessJwt, actorID: parsed.DID}
	c.logger.Info("logged in", logging.String("handle", identifier), logging.String("did", parsed.DID))
	return nil
}

// handleRateLimit persists the resume time so the next cron invocation can
// check it before doing any work; the in-memory circuit breaker alone does
// not survive process exit.
func (c *Client) handleRateLimit(ctx context.Context, resp *http.Response) error {
	now := c.now().UTC()
	until, ok := retryAfterTime(resp.Header.Get("Retry-After"), now)
	if !ok {
		until = now.Add(defaultRateLimitBackoff)
	}

	if err := c.cooldowns.SetCooldownUntil(ctx, &until); err != nil {
		c.logger.Error("failed to persist cooldown", logging.Error(err))
	} else {
		c.logger.Warn("rate limited; cooldown persisted", logging.Time("until", until))
	}
	return services.Wrap(services.ErrRateLimited, "bluesky", "login",
		fmt.Sprintf("rate limited until %s", until.Format(time.RFC3339)), nil)
}

func (c *Client) uploadBlob(ctx context.Context, image []byte, contentType string) (BlobRef, error) {
	var empty BlobRef

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadBlobPath, bytes.NewReader(image))
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "bluesky", "upload blob", "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.session.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "bluesky", "upload blob", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "bluesky", "upload blob", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return empty, services.Wrap(services.ErrTransient, "bluesky", "upload blob",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed uploadBlobResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return empty, services.Wrap(services.ErrProtocol, "bluesky", "upload blob", "decode response", err)
	}
	if parsed.Blob.Ref.Link == "" || parsed.Blob.MimeType == "" || parsed.Blob.Size <= 0 {
		return empty, services.Wrap(services.ErrProtocol, "bluesky", "upload blob", "response missing blob descriptor fields", nil)
	}

	c.logger.Debug("uploaded blob",
		logging.String("link", parsed.Blob.Ref.Link),
		logging.String("mime_type", parsed.Blob.MimeType),
	)
	return parsed.Blob, nil
}

func (c *Client) createPost(ctx context.Context, text string, blob BlobRef) (string, error) {
	request := createRecordRequest{
		Repo:       c.session.actorID,
		Collection: postCollection,
		Record: postRecord{
			Type: postCollection,
			Text: text,
			Embed: &imagesEmbed{
				Type:   embedImagesTag,
				Images: []imageEmbedEntry{{Alt: "", Image: blob}},
			},
			CreatedAt: c.now().UTC().Format(time.RFC3339),
		},
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", services.Wrap(services.ErrProtocol, "bluesky", "create record", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createRecordPath, bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "bluesky", "create record", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.session.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "bluesky", "create record", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "bluesky", "create record", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrTransient, "bluesky", "create record",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	// The created-record uri is informational only; a 2xx without it is
	// still success.
	var parsed createRecordResponse
	_ = json.Unmarshal(body, &parsed)
	return parsed.URI, nil
}

// resolveCredentials checks the environment first, then the config file
// section. Missing either half is a configuration failure and no network
// call is made.
func resolveCredentials(cfg *config.Bluesky) (string, string, error) {
	identifier := strings.TrimSpace(os.Getenv(envHandle))
	if identifier == "" {
		identifier = strings.TrimSpace(cfg.Handle)
	}
	password := strings.TrimSpace(os.Getenv(envAppPassword))
	if password == "" {
		password = strings.TrimSpace(cfg.AppPassword)
	}
	if identifier == "" || password == "" {
		return "", "", services.Wrap(services.ErrConfiguration, "bluesky", "credentials",
			fmt.Sprintf("set %s and %s or the [bluesky] config section", envHandle, envAppPassword), nil)
	}
	return identifier, password, nil
}

// NormalizeHandle canonicalizes an account identifier: "user@bsky.social"
// becomes "user.bsky.social" and a bare "user" gets the default domain
// appended. Already-canonical handles pass through unchanged.
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	if strings.Contains(handle, "@") {
		handle = strings.ReplaceAll(handle, "@", ".")
	}
	if !strings.Contains(handle, ".") {
		handle = handle + "." + defaultHandleDomain
	}
	return handle
}

// contentTypeForURL maps an image URL's file extension to the upload
// content type, defaulting to JPEG.
func contentTypeForURL(imageURL string) string {
	target := imageURL
	if parsed, err := url.Parse(imageURL); err == nil {
		target = parsed.Path
	}
	ext := strings.ToLower(path.Ext(target))
	switch ext {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
