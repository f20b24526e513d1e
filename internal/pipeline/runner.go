// Package pipeline sequences one bot run: gate on any persisted cooldown,
// fetch candidates, then for each candidate dedup, download, fingerprint,
// and publish. Items are processed strictly one at a time so a mid-run
// failure leaves every earlier item fully recorded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/imagehash"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/logging"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/reddit"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/services"
)

// Source supplies repost candidates and their commentary.
type Source interface {
	Candidates(ctx context.Context, subreddits []string) ([]reddit.Candidate, error)
	TopComment(ctx context.Context, submissionID string) string
}

// Publisher posts one image with text to the destination service.
type Publisher interface {
	Publish(ctx context.Context, text string, image []byte, imageURL string) error
}

// StateStore is the slice of the dedup store the runner needs.
type StateStore interface {
	HasPosted(ctx context.Context, id string) (bool, error)
	HasPostedImage(ctx context.Context, fingerprint string) (bool, error)
	RecordPosted(ctx context.Context, id, fingerprint string) error
	GetCooldownUntil(ctx context.Context) (*time.Time, error)
}

// Result summarizes one run.
type Result struct {
	Candidates int
	Published  int
	Duplicates int
	Failures   int
	// CooldownUntil is set when the run was gated or aborted by a
	// rate-limit cooldown.
	CooldownUntil *time.Time
}

// Runner drives the fetch-dedup-publish loop.
type Runner struct {
	cfg       *config.Config
	store     StateStore
	source    Source
	publisher Publisher
	logger    *slog.Logger

	downloader *http.Client
	now        func() time.Time
}

// NewRunner wires a run over the given collaborators.
func NewRunner(cfg *config.Config, store StateStore, source Source, publisher Publisher, logger *slog.Logger) *Runner {
	timeout := time.Duration(cfg.Pipeline.DownloadTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		cfg:        cfg,
		store:      store,
		source:     source,
		publisher:  publisher,
		logger:     logging.WithComponent(logger, "pipeline"),
		downloader: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Run executes one full pass. It returns an error only for run-level
// failures: an active or newly persisted cooldown, a storage fault, or a
// candidate fetch that produced nothing to work with. Item-level failures
// are counted and logged but do not stop the loop.
func (r *Runner) Run(ctx context.Context, subreddits []string) (Result, error) {
	var result Result
	log := r.logger.With(logging.String("run_id", uuid.NewString()))

	until, err := r.store.GetCooldownUntil(ctx)
	if err != nil {
		return result, services.Wrap(services.ErrStorage, "pipeline", "run", "read cooldown", err)
	}
	if until != nil && until.After(r.now()) {
		result.CooldownUntil = until
		log.Warn("rate-limit cooldown active, skipping run", logging.Time("until", *until))
		return result, services.Wrap(services.ErrRateLimited, "pipeline", "run",
			fmt.Sprintf("cooldown active until %s", until.UTC().Format(time.RFC3339)), nil)
	}

	candidates, err := r.source.Candidates(ctx, subreddits)
	if err != nil {
		return result, err
	}
	result.Candidates = len(candidates)
	log.Info("run starting",
		logging.Int("candidates", len(candidates)),
		logging.Int("post_limit", r.cfg.Pipeline.PostLimit),
	)

	for _, candidate := range candidates {
		if r.cfg.Pipeline.PostLimit > 0 && result.Published >= r.cfg.Pipeline.PostLimit {
			log.Info("post limit reached", logging.Int("published", result.Published))
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := r.processCandidate(ctx, log, candidate, &result)
		if err == nil {
			continue
		}
		if services.AbortsRun(err) {
			if errors.Is(err, services.ErrRateLimited) {
				if until, cerr := r.store.GetCooldownUntil(ctx); cerr == nil {
					result.CooldownUntil = until
				}
			}
			return result, err
		}
		result.Failures++
		log.Error("candidate failed",
			logging.String("id", candidate.ID),
			logging.String("subreddit", candidate.Subreddit),
			logging.Error(err),
		)
	}

	log.Info("run complete",
		logging.Int("published", result.Published),
		logging.Int("duplicates", result.Duplicates),
		logging.Int("failures", result.Failures),
	)
	return result, nil
}

func (r *Runner) processCandidate(ctx context.Context, log *slog.Logger, candidate reddit.Candidate, result *Result) error {
	posted, err := r.store.HasPosted(ctx, candidate.ID)
	if err != nil {
		return services.Wrap(services.ErrStorage, "pipeline", "dedup", candidate.ID, err)
	}
	if posted {
		result.Duplicates++
		return nil
	}

	image, cleanup, err := r.download(ctx, candidate.ImageURL)
	if err != nil {
		return err
	}
	defer cleanup()

	fingerprint, err := imagehash.Fingerprint(image)
	if err != nil {
		return services.Wrap(services.ErrProtocol, "pipeline", "fingerprint", candidate.ImageURL, err)
	}

	seen, err := r.store.HasPostedImage(ctx, fingerprint)
	if err != nil {
		return services.Wrap(services.ErrStorage, "pipeline", "dedup", fingerprint, err)
	}
	if seen {
		result.Duplicates++
		log.Debug("image already posted under a different id",
			logging.String("id", candidate.ID),
			logging.String("fingerprint", fingerprint),
		)
		return nil
	}

	text := r.source.TopComment(ctx, candidate.ID)
	if text == "" {
		text = candidate.Title
	}

	if err := r.publisher.Publish(ctx, text, image, candidate.ImageURL); err != nil {
		return err
	}
	if err := r.store.RecordPosted(ctx, candidate.ID, fingerprint); err != nil {
		return services.Wrap(services.ErrStorage, "pipeline", "record posted", candidate.ID, err)
	}
	result.Published++
	log.Info("published",
		logging.String("id", candidate.ID),
		logging.String("subreddit", candidate.Subreddit),
		logging.Int("score", candidate.Score),
	)
	return nil
}

// download fetches the image through a uuid-named scratch file so a partial
// body never masquerades as a complete image, then loads it back. The
// cleanup func removes the scratch file and is safe to call always.
func (r *Runner) download(ctx context.Context, imageURL string) ([]byte, func(), error) {
	nop := func() {}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, nop, services.Wrap(services.ErrTransient, "pipeline", "download", "build request", err)
	}
	resp, err := r.downloader.Do(req)
	if err != nil {
		return nil, nop, services.Wrap(services.ErrTransient, "pipeline", "download", imageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nop, services.Wrap(services.ErrTransient, "pipeline", "download",
			fmt.Sprintf("http %d for %s", resp.StatusCode, imageURL), nil)
	}

	scratch := filepath.Join(r.cfg.TempDir(), uuid.NewString())
	file, err := os.Create(scratch)
	if err != nil {
		return nil, nop, services.Wrap(services.ErrStorage, "pipeline", "download", "create scratch file", err)
	}
	cleanup := func() { os.Remove(scratch) }

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		cleanup()
		return nil, nop, services.Wrap(services.ErrTransient, "pipeline", "download", "write scratch file", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return nil, nop, services.Wrap(services.ErrStorage, "pipeline", "download", "close scratch file", err)
	}

	data, err := os.ReadFile(scratch)
	if err != nil {
		cleanup()
		return nil, nop, services.Wrap(services.ErrStorage, "pipeline", "download", "read scratch file", err)
	}
	return data, cleanup, nil
}
