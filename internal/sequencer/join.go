package sequencer

// Handle is the completion of one animation. Continuations registered after
// completion run immediately.
type Handle interface {
	OnDone(fn func(err error))
}

// Completion is a Handle that node implementations complete explicitly.
type Completion struct {
	done    bool
	err     error
	waiters []func(error)
}

func (c *Completion) OnDone(fn func(error)) {
	if c.done {
		fn(c.err)
		return
	}
	c.waiters = append(c.waiters, fn)
}

// Complete resolves the handle. Only the first call has an effect.
func (c *Completion) Complete(err error) {
	if c.done {
		return
	}
	c.done = true
	c.err = err
	waiters := c.waiters
	c.waiters = nil
	for _, fn := range waiters {
		fn(err)
	}
}

// Finished reports whether the handle has completed.
func (c *Completion) Finished() bool {
	return c.done
}

// Resolved returns an already completed handle.
func Resolved(err error) Handle {
	return &Completion{done: true, err: err}
}

// Join runs then once every handle has completed, passing the first error
// reported. With no handles then runs immediately.
func Join(handles []Handle, then func(error)) {
	outstanding := len(handles)
	if outstanding == 0 {
		then(nil)
		return
	}
	var first error
	for _, h := range handles {
		h.OnDone(func(err error) {
			if err != nil && first == nil {
				first = err
			}
			outstanding--
			if outstanding == 0 {
				then(first)
			}
		})
	}
}
