package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"foodhub-gateway/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestToggleRunStates(t *testing.T) {
	toggler := services.NewToggler(nil)
	var seen []services.ToggleState
	toggler.OnTransition(func(tg services.Toggle) { seen = append(seen, tg.State) })

	ok := toggler.Run(context.Background(), "k", false, func(context.Context) error { return nil })
	assert.True(t, ok.Value())
	assert.Equal(t, services.ToggleConfirmed, ok.State)

	failed := toggler.Run(context.Background(), "k", false, func(context.Context) error { return errors.New("boom") })
	assert.False(t, failed.Value())
	assert.EqualError(t, failed.Err, "boom")

	assert.Equal(t, []services.ToggleState{
		services.TogglePending, services.ToggleConfirmed,
		services.TogglePending, services.ToggleRolledBack,
	}, seen)
}

func TestLockSerializesOverlappingKeys(t *testing.T) {
	toggler := services.NewToggler(nil)
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys := []string{"a", "b"}
			if i%2 == 0 {
				keys = []string{"b", "a", "a"}
			}
			unlock := toggler.Lock(keys...)
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
