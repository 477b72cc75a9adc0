package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/camsync/camsync/pkg/errcode"
)

func TestStateUpdate(t *testing.T) {
	cases := map[string]struct {
		from, next State
		legal      bool
	}{
		"Prime":            {StateUnprimed, StatePrimed, true},
		"Reprime":          {StateStopped, StatePrimed, true},
		"PrimeAcquiring":   {StateAcquiring, StatePrimed, false},
		"PrimePrimed":      {StatePrimed, StatePrimed, false},
		"Trigger":          {StatePrimed, StateAcquiring, true},
		"TriggerUnprimed":  {StateUnprimed, StateAcquiring, false},
		"TriggerStopped":   {StateStopped, StateAcquiring, false},
		"Stop":             {StateAcquiring, StateStopped, true},
		"Disarm":           {StatePrimed, StateStopped, true},
		"StopUnprimed":     {StateUnprimed, StateStopped, false},
		"ReleaseUnprimed":  {StateUnprimed, StateReleased, true},
		"ReleaseAcquiring": {StateAcquiring, StateReleased, true},
		"ReleaseReleased":  {StateReleased, StateReleased, false},
		"Unprime":          {StateStopped, StateUnprimed, false},
	}

	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			s := c.from
			called := false
			err := s.Update(c.next, func() error {
				called = true
				return nil
			})
			if c.legal {
				assert.NoError(t, err)
				assert.True(t, called)
				assert.Equal(t, c.next, s)
				return
			}
			assert.True(t, errors.Is(err, errcode.State), "got %v", err)
			assert.False(t, called)
			assert.Equal(t, c.from, s)
		})
	}
}

func TestStateUpdateFailureKeepsState(t *testing.T) {
	s := StateUnprimed
	err := s.Update(StatePrimed, func() error {
		return errcode.New(errcode.Hardware, "prime", "boom")
	})
	assert.True(t, errors.Is(err, errcode.Hardware))
	assert.Equal(t, StateUnprimed, s)
}

func TestStateLocked(t *testing.T) {
	for s, locked := range map[State]bool{
		StateUnprimed:  false,
		StatePrimed:    true,
		StateAcquiring: true,
		StateStopped:   false,
		StateReleased:  false,
	} {
		assert.Equal(t, locked, s.Locked(), "%s", s)
	}
}
