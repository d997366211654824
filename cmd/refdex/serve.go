package main

import (
	"context"
	"time"
)

// shutdownTimeout bounds in-flight requests after an interrupt.
const shutdownTimeout = 10 * time.Second

// Run executes the serve command. It blocks until the context is canceled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	errc := make(chan error, 1)
	go func() {
		errc <- deps.Server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-deps.Ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(deps.Ctx), shutdownTimeout)
	defer cancel()
	if err := deps.Server.Shutdown(ctx); err != nil {
		return err
	}
	return <-errc
}
