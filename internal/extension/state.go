package extension

import "go.uber.org/zap"

// InitialState merges every extension's InitialState. Higher priority
// extensions are merged last and win on a shared key.
func (c *Composition) InitialState() State {
	out := make(State)
	for i := len(c.ordered) - 1; i >= 0; i-- {
		for k, v := range c.ordered[i].InitialState {
			out[k] = v
		}
	}
	return out
}

// MergeState asks every state contributor for its slice of state and
// shallow-merges the results, lowest priority first. Keys an extension did
// not declare are dropped. A contributor that fails contributes nothing.
func (c *Composition) MergeState(ctxFor ContextFunc) State {
	out := make(State)
	for i := len(c.ordered) - 1; i >= 0; i-- {
		d := c.ordered[i]
		if d.ContributeState == nil {
			continue
		}

		var part State
		if err := c.guard(d, "state", func() error {
			part = d.ContributeState(ctxFor(d))
			return nil
		}); err != nil {
			continue
		}

		for k, v := range part {
			if !contains(d.StateKeys, k) {
				c.logger.Debug("Dropping undeclared state key",
					zap.String("extension", d.Key()),
					zap.String("key", k))
				continue
			}
			out[k] = v
		}
	}
	return out
}
