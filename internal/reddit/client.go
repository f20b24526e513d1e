// Package reddit fetches post candidates from the pullpush.io archive of
// reddit submissions. The archive is public and unauthenticated, so the
// client is a thin query layer with per-subreddit error isolation.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/logging"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/services"
)

const (
	submissionSearchPath = "/reddit/search/submission/"
	commentSearchPath    = "/reddit/search/comment/"

	// searchLimit is the page size requested from the archive. One page per
	// subreddit per run; there is no pagination.
	searchLimit = 100
)

// Candidate is a submission eligible for reposting: scored above the
// configured threshold and linking directly to an image.
type Candidate struct {
	ID        string
	Title     string
	ImageURL  string
	Score     int
	Subreddit string
}

type submission struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Score     int    `json:"score"`
	Subreddit string `json:"subreddit"`
}

type submissionSearchResponse struct {
	Data []submission `json:"data"`
}

type comment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
}

type commentSearchResponse struct {
	Data []comment `json:"data"`
}

// Client queries the submission archive.
type Client struct {
	baseURL  string
	minScore int
	client   *http.Client
	logger   *slog.Logger
}

// NewClient builds an archive client from the reddit config section.
func NewClient(cfg *config.Reddit, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		minScore: cfg.MinScore,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.WithComponent(logger, "reddit"),
	}
}

// Candidates fetches image submissions from each subreddit in order. A
// subreddit whose fetch fails is logged and skipped; the error is fatal only
// when every subreddit fails, since a run with zero sources cannot proceed.
func (c *Client) Candidates(ctx context.Context, subreddits []string) ([]Candidate, error) {
	var all []Candidate
	failures := 0
	for _, subreddit := range subreddits {
		found, err := c.searchSubreddit(ctx, subreddit)
		if err != nil {
			failures++
			c.logger.Warn("subreddit fetch failed",
				logging.String("subreddit", subreddit),
				logging.Error(err),
			)
			continue
		}
		c.logger.Debug("fetched candidates",
			logging.String("subreddit", subreddit),
			logging.Int("count", len(found)),
		)
		all = append(all, found...)
	}
	if len(subreddits) > 0 && failures == len(subreddits) {
		return nil, services.Wrap(services.ErrTransient, "reddit", "candidates",
			"all subreddit fetches failed", nil)
	}
	return all, nil
}

func (c *Client) searchSubreddit(ctx context.Context, subreddit string) ([]Candidate, error) {
	query := url.Values{}
	query.Set("subreddit", subreddit)
	query.Set("score", ">"+strconv.Itoa(c.minScore))
	query.Set("limit", strconv.Itoa(searchLimit))

	var parsed submissionSearchResponse
	if err := c.getJSON(ctx, submissionSearchPath, query, &parsed); err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, s := range parsed.Data {
		if s.ID == "" || !IsImageURL(s.URL) {
			continue
		}
		if s.Score <= c.minScore {
			continue
		}
		name := s.Subreddit
		if name == "" {
			name = subreddit
		}
		candidates = append(candidates, Candidate{
			ID:        s.ID,
			Title:     s.Title,
			ImageURL:  s.URL,
			Score:     s.Score,
			Subreddit: name,
		})
	}
	return candidates, nil
}

// TopComment returns the highest-scored human comment on a submission, or
// empty when none qualifies. Lookup failures are swallowed; comment text is
// flavor, not a requirement.
func (c *Client) TopComment(ctx context.Context, submissionID string) string {
	query := url.Values{}
	query.Set("link_id", submissionID)
	query.Set("sort_type", "score")
	query.Set("sort", "desc")
	query.Set("limit", "25")

	var parsed commentSearchResponse
	if err := c.getJSON(ctx, commentSearchPath, query, &parsed); err != nil {
		c.logger.Debug("comment lookup failed",
			logging.String("submission", submissionID),
			logging.Error(err),
		)
		return ""
	}

	best := ""
	bestScore := 0
	for _, cm := range parsed.Data {
		if !usableComment(cm) {
			continue
		}
		if best == "" || cm.Score > bestScore {
			best = cm.Body
			bestScore = cm.Score
		}
	}
	return strings.TrimSpace(best)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "reddit", "search", "build request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "reddit", "search", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrTransient, "reddit", "search",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrProtocol, "reddit", "search", "decode response", err)
	}
	return nil
}

func usableComment(cm comment) bool {
	body := strings.TrimSpace(cm.Body)
	author := strings.ToLower(strings.TrimSpace(cm.Author))
	switch {
	case body == "" || body == "[removed]" || body == "[deleted]":
		return false
	case author == "automoderator" || author == "[deleted]":
		return false
	case strings.HasSuffix(author, "bot") || strings.HasSuffix(author, "-bot") || strings.HasSuffix(author, "_bot"):
		return false
	case strings.Contains(body, "I am a bot"):
		return false
	}
	return true
}

// IsImageURL reports whether a submission URL links directly to an image
// file the publisher can upload.
func IsImageURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(parsed.Path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}
