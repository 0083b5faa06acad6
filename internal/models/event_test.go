package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
}

func TestSlotWindowContainsHalfOpen(t *testing.T) {
	w := SlotWindow{Enabled: true, StartsAt: ts(9, 0), EndsAt: ts(9, 30)}

	assert.False(t, w.Contains(ts(8, 59)))
	assert.True(t, w.Contains(ts(9, 0)), "start is inclusive")
	assert.True(t, w.Contains(ts(9, 29)))
	assert.False(t, w.Contains(ts(9, 30)), "end is exclusive")

	disabled := SlotWindow{Enabled: false, StartsAt: ts(9, 0), EndsAt: ts(9, 30)}
	assert.False(t, disabled.Contains(ts(9, 15)))
}

func TestValidateSlotWindows(t *testing.T) {
	base := func() *Event {
		return &Event{
			Slots: map[ScanSlot]SlotWindow{
				SlotMorningIn:  {Enabled: true, StartsAt: ts(9, 0), EndsAt: ts(9, 30)},
				SlotMorningOut: {Enabled: true, StartsAt: ts(11, 30), EndsAt: ts(12, 0)},
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().ValidateSlotWindows())
	})

	t.Run("inverted window", func(t *testing.T) {
		e := base()
		e.Slots[SlotMorningIn] = SlotWindow{Enabled: true, StartsAt: ts(10, 0), EndsAt: ts(9, 0)}
		var swErr *SlotWindowError
		require.ErrorAs(t, e.ValidateSlotWindows(), &swErr)
		assert.Equal(t, SlotMorningIn, swErr.Slot)
	})

	t.Run("overlapping windows", func(t *testing.T) {
		e := base()
		e.Slots[SlotMorningOut] = SlotWindow{Enabled: true, StartsAt: ts(9, 15), EndsAt: ts(10, 0)}
		assert.Error(t, e.ValidateSlotWindows())
	})

	t.Run("adjacent windows do not overlap", func(t *testing.T) {
		// morning_in ends exactly when morning_out starts: 09:30 satisfies
		// only the second window.
		e := base()
		e.Slots[SlotMorningOut] = SlotWindow{Enabled: true, StartsAt: ts(9, 30), EndsAt: ts(10, 0)}
		assert.NoError(t, e.ValidateSlotWindows())
	})

	t.Run("disabled windows are ignored", func(t *testing.T) {
		e := base()
		e.Slots[SlotAfternoonIn] = SlotWindow{Enabled: false, StartsAt: ts(9, 0), EndsAt: ts(9, 30)}
		assert.NoError(t, e.ValidateSlotWindows())
	})
}

func TestEnabledSlotsOrder(t *testing.T) {
	e := &Event{
		Slots: map[ScanSlot]SlotWindow{
			SlotAfternoonOut: {Enabled: true},
			SlotMorningIn:    {Enabled: true},
		},
	}
	assert.Equal(t, []ScanSlot{SlotMorningIn, SlotAfternoonOut}, e.EnabledSlots())
}

func TestExcuseCoversSlot(t *testing.T) {
	all := &Excuse{Slot: ExcuseSlotAll}
	assert.True(t, all.CoversSlot(SlotMorningIn))
	assert.True(t, all.CoversSlot(SlotAfternoonOut))

	one := &Excuse{Slot: string(SlotMorningIn)}
	assert.True(t, one.CoversSlot(SlotMorningIn))
	assert.False(t, one.CoversSlot(SlotMorningOut))
}

func TestRegistrationOpenAt(t *testing.T) {
	deadline := ts(8, 0)
	e := &Event{StartsAt: ts(9, 0), RegistrationDeadline: &deadline}
	assert.True(t, e.RegistrationOpenAt(ts(7, 59)))
	assert.False(t, e.RegistrationOpenAt(ts(8, 1)), "deadline passed")

	noDeadline := &Event{StartsAt: ts(9, 0)}
	assert.True(t, noDeadline.RegistrationOpenAt(ts(8, 59)))
	assert.False(t, noDeadline.RegistrationOpenAt(ts(9, 0)), "event started")
}
