package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/viVeK21111/chatgpt-clone/internal/ai"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
)

const maxTitleRunes = 60

// ErrPermanent marks failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, history []ai.HistoryItem) (string, error)
}

// TitleRunner names a session after its first exchange.
type TitleRunner struct {
	repo *chat.Repo
	gen  TextGenerator
}

func NewTitleRunner(repo *chat.Repo, gen TextGenerator) *TitleRunner {
	return &TitleRunner{repo: repo, gen: gen}
}

func (r *TitleRunner) Handle(ctx context.Context, jobID string) error {
	jobStart := time.Now()

	claimed, err := r.repo.UpdateJobStatusRunning(ctx, jobID)
	if err != nil {
		return err
	}

	job, err := r.repo.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return err
	}
	if !claimed && job.Status != chat.JobRunning {
		log.Printf("[TitleJob] skip job=%s status=%s", jobID, job.Status)
		return nil
	}
	if job.Kind != chat.JobSessionTitle {
		return r.fail(ctx, jobID, fmt.Errorf("%w: unknown job kind %q", ErrPermanent, job.Kind))
	}

	first, err := r.repo.FirstExchange(ctx, job.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.fail(ctx, jobID, fmt.Errorf("%w: %v", ErrPermanent, err))
		}
		return r.fail(ctx, jobID, err)
	}

	t0 := time.Now()
	reply, err := r.gen.GenerateText(ctx, titlePrompt(first.Query), nil)
	genCost := time.Since(t0)

	title := CleanTitle(reply)
	if err != nil || title == "" {
		if err != nil {
			log.Printf("[TitleJob] generate failed job=%s err=%v, using fallback", jobID, err)
		}
		title = CleanTitle(first.Query)
	}

	if err := r.repo.UpdateSessionTitle(ctx, job.SessionID, title); err != nil {
		return r.fail(ctx, jobID, err)
	}
	if err := r.repo.MarkJobSucceeded(ctx, jobID); err != nil {
		return err
	}

	if total := time.Since(jobStart); total > 2*time.Second {
		log.Printf("job_timing job=%s gen=%s total=%s", jobID, genCost, total)
	}
	return nil
}

func (r *TitleRunner) fail(ctx context.Context, jobID string, err error) error {
	if markErr := r.repo.MarkJobFailed(ctx, jobID, err.Error()); markErr != nil {
		log.Printf("[TitleJob] mark failed job=%s err=%v", jobID, markErr)
	}
	return err
}

func titlePrompt(query string) string {
	return "Write a title of at most six words for a conversation that starts with the message below. " +
		"Reply with the title only, without quotes.\n\n" + query
}

// CleanTitle keeps the first line of s without surrounding quotes or a
// trailing period, capped at maxTitleRunes.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, " \t\"'`*#")
	s = strings.TrimSuffix(s, ".")
	if utf8.RuneCountInString(s) > maxTitleRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxTitleRunes]))
	}
	return s
}
