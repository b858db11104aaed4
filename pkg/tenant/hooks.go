package tenant

import (
	"context"

	"github.com/platinummonkey/warden/pkg/observability"
)

// PostCommitHook is a side effect (audit append, event publish) that runs
// after an entity write has committed.
type PostCommitHook func(ctx context.Context) error

// RunPostCommit executes hooks in order. A hook failure is logged and never
// returned: the entity write already happened, and losing an audit record or
// event is recoverable in a way losing the caller's change is not.
func RunPostCommit(ctx context.Context, log *observability.Logger, hooks ...PostCommitHook) {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx); err != nil && log != nil {
			log.WithError(err).Error("post-commit hook failed")
		}
	}
}
