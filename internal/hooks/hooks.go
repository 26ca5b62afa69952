// Package hooks runs post-commit side effects. Hooks start after the primary
// transaction has committed, are never awaited for correctness, and each one
// is isolated so a failing or panicking hook cannot affect another or the
// response already sent.
package hooks

import (
	"context"
	"log"
)

type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Run fires each hook in its own goroutine. The request context may already
// be cancelled by the time a hook runs, so hooks get a detached copy that
// keeps its values.
func Run(ctx context.Context, hs ...Hook) {
	detached := context.WithoutCancel(ctx)
	for _, h := range hs {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("hook %s panicked: %v", h.Name, r)
				}
			}()
			if err := h.Fn(detached); err != nil {
				log.Printf("hook %s failed: %v", h.Name, err)
			}
		}()
	}
}
