// Package sugar provides higher-level conveniences over the authenticator
// controllers.
package sugar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/authsignal/authsignal-go/pkg/astypes"
	"github.com/authsignal/authsignal-go/pkg/credential"
)

var ErrNoEligibleController = errors.New("sugar: no controller holds a credential to poll with")

// WaitForChallenge polls every controller until one reports a pending
// challenge, then cancels the rest and returns it. Controllers without a
// local credential are skipped. The wait ends when ctx is done.
func WaitForChallenge(ctx context.Context, interval time.Duration, controllers ...*credential.Controller) (*astypes.Challenge, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	// First success wins; the channel is buffered so losers never block.
	selection := make(chan mo.Either[*astypes.Challenge, error], len(controllers)+1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var once sync.Once

	eligible := lo.Filter(controllers, func(c *credential.Controller, _ int) bool {
		return c != nil
	})

	for _, ctrl := range eligible {
		wg.Add(1)
		go func(ctrl *credential.Controller) {
			defer wg.Done()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				challenge, err := ctrl.GetChallenge(ctx)
				switch {
				case errors.Is(err, credential.ErrNoCredential):
					// Nothing enrolled for this kind; leave it to the others.
					return
				case err != nil:
					if ctx.Err() == nil {
						once.Do(func() {
							cancel()
							selection <- mo.Right[*astypes.Challenge, error](err)
						})
					}
					return
				case challenge != nil:
					once.Do(func() {
						cancel()
						selection <- mo.Left[*astypes.Challenge, error](challenge)
					})
					return
				}

				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}(ctrl)
	}

	go func() {
		wg.Wait()
		once.Do(func() {
			if err := ctx.Err(); err != nil {
				selection <- mo.Right[*astypes.Challenge, error](err)
				return
			}
			selection <- mo.Right[*astypes.Challenge, error](ErrNoEligibleController)
		})
	}()

	sel := <-selection
	if err, ok := sel.Right(); ok {
		return nil, err
	}

	return sel.MustLeft(), nil
}
