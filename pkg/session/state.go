package session

import (
	"context"
	"encoding/json"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
)

const statePollInterval = 500 * time.Millisecond

const initialStateReadyScript = `() => window.__INITIAL_STATE__ !== undefined`

// initialStateScript serialises only the subtrees the tool reads; the full
// store holds reactive wrappers with cycles.
const initialStateScript = `() => {
	if (!window.__INITIAL_STATE__) return '';
	const state = window.__INITIAL_STATE__;
	const result = {};
	if (state.search) result.search = state.search;
	if (state.feed) result.feed = state.feed;
	if (state.note) result.note = state.note;
	if (state.user) result.user = state.user;
	return JSON.stringify(result);
}`

// WaitForInitialState waits for window.__INITIAL_STATE__, reloading the page
// up to the configured number of times. A challenge found before or after a
// reload is returned; a state that never appears is logged and tolerated.
func (s *Session) WaitForInitialState(ctx context.Context) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	if err := s.CheckChallenge(ctx); err != nil {
		return err
	}

	reloads := max(s.cfg.Retry.InitialStateReloads, 0)
	for attempt := 0; ; attempt++ {
		ready, err := s.pollInitialState(ctx, page)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if attempt >= reloads {
			break
		}

		s.logger.WarnWithFields("Initial state not ready, reloading", map[string]interface{}{
			"attempt": attempt + 1,
			"reloads": reloads,
		})
		if err := page.Reload(ctx); err != nil {
			s.logger.WithError(err).Warn("Reload failed")
		}
		if err := s.Pause(ctx, 2*time.Second, 4*time.Second); err != nil {
			return err
		}
		if err := s.CheckChallenge(ctx); err != nil {
			return err
		}
	}

	s.logger.Warn("Initial state still missing, continuing without it")
	return nil
}

// pollInitialState checks readiness a bounded number of times spread over the
// configured timeout
func (s *Session) pollInitialState(ctx context.Context, page Page) (bool, error) {
	polls := max(int(s.cfg.Retry.InitialStateTimeout/statePollInterval), 1)
	for i := 0; i < polls; i++ {
		raw, err := page.Eval(ctx, initialStateReadyScript)
		if err == nil {
			var ready bool
			if json.Unmarshal(raw, &ready) == nil && ready {
				return true, nil
			}
		}
		if i == polls-1 {
			break
		}
		if err := s.sleep(ctx, statePollInterval); err != nil {
			return false, err
		}
	}
	return false, nil
}

// InitialState returns the search, feed, note and user subtrees of the page
// store. An absent store yields an empty tree.
func (s *Session) InitialState(ctx context.Context) (state.Tree, error) {
	raw, err := s.Eval(ctx, initialStateScript)
	if err != nil {
		return nil, err
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeExtraction, "initial state is not a string", err)
	}
	if encoded == "" {
		return state.Tree{}, nil
	}

	tree := state.Tree{}
	if err := json.Unmarshal([]byte(encoded), &tree); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeExtraction, "failed to decode initial state", err)
	}
	return tree, nil
}

// DataByPath reads a dotted path from the current page store
func (s *Session) DataByPath(ctx context.Context, path string) (interface{}, bool, error) {
	tree, err := s.InitialState(ctx)
	if err != nil {
		return nil, false, err
	}
	v, ok := state.Resolve(tree, path)
	return v, ok, nil
}

// LookupPath reads a dotted path, retrying while it is not yet populated
func (s *Session) LookupPath(ctx context.Context, path string) (interface{}, bool, error) {
	return state.Lookup(ctx, func(ctx context.Context) (interface{}, bool, error) {
		return s.DataByPath(ctx, path)
	}, state.LookupConfig{
		Attempts: s.cfg.Retry.StateAttempts,
		Backoff:  s.cfg.Retry.StateBackoff,
		Logger:   s.logger,
	})
}
