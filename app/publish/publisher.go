package publish

import (
	"context"
	"log/slog"

	"github.com/bgnews/newsrelay/app/post"
)

// Publisher delivers one item. A nil error is an affirmative confirmation
// that the item went out; anything else means it must not be recorded.
type Publisher interface {
	Publish(ctx context.Context, item post.Item) error
}

// LogPublisher is the dry-run publisher. It logs the caption and always succeeds.
type LogPublisher struct {
	caption CaptionOptions
}

func NewLogPublisher(caption CaptionOptions) *LogPublisher {
	return &LogPublisher{caption: caption}
}

func (p *LogPublisher) Publish(ctx context.Context, item post.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("Dry run publish", "source", item.SourceTag, "link", item.CanonicalURL, "caption", Caption(item, p.caption))
	return nil
}
