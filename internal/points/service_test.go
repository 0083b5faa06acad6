package points

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/backend/internal/models"
)

type awardKey struct {
	user, event uuid.UUID
}

type mockLedger struct {
	awards map[awardKey]int
}

func newMockLedger() *mockLedger {
	return &mockLedger{awards: map[awardKey]int{}}
}

func (m *mockLedger) AwardAttendance(_ context.Context, userID, eventID uuid.UUID, amount int, _ string) (bool, error) {
	key := awardKey{userID, eventID}
	if _, ok := m.awards[key]; ok {
		return false, nil
	}
	m.awards[key] = amount
	return true, nil
}

type mockAttendance struct {
	slots []models.ScanSlot
}

func (m *mockAttendance) SlotsForUser(_ context.Context, _, _ uuid.UUID) ([]models.ScanSlot, error) {
	return m.slots, nil
}

func fourSlotEvent(points *int) *models.Event {
	slots := map[models.ScanSlot]models.SlotWindow{}
	for _, s := range models.AllScanSlots() {
		slots[s] = models.SlotWindow{Enabled: true}
	}
	return &models.Event{ID: uuid.New(), Title: "General Assembly", Points: points, Slots: slots}
}

func twoSlotEvent() *models.Event {
	return &models.Event{
		ID:    uuid.New(),
		Title: "Morning Seminar",
		Slots: map[models.ScanSlot]models.SlotWindow{
			models.SlotMorningIn:    {Enabled: true},
			models.SlotMorningOut:   {Enabled: true},
			models.SlotAfternoonIn:  {Enabled: false},
			models.SlotAfternoonOut: {Enabled: false},
		},
	}
}

func TestNoAwardUntilAllEnabledSlotsRecorded(t *testing.T) {
	ledger := newMockLedger()
	attendance := &mockAttendance{}
	svc := NewService(ledger, attendance, 10, nil)
	event := fourSlotEvent(nil)
	userID := uuid.New()

	for _, partial := range [][]models.ScanSlot{
		nil,
		{models.SlotMorningIn},
		{models.SlotMorningIn, models.SlotMorningOut},
		{models.SlotMorningIn, models.SlotMorningOut, models.SlotAfternoonIn},
	} {
		attendance.slots = partial
		awarded, amount, err := svc.Evaluate(context.Background(), event, userID)
		require.NoError(t, err)
		assert.False(t, awarded)
		assert.Zero(t, amount)
	}
	assert.Empty(t, ledger.awards)

	attendance.slots = models.AllScanSlots()
	awarded, amount, err := svc.Evaluate(context.Background(), event, userID)
	require.NoError(t, err)
	assert.True(t, awarded)
	assert.Equal(t, 10, amount)
}

func TestEventPointsOverrideDefault(t *testing.T) {
	ledger := newMockLedger()
	attendance := &mockAttendance{slots: models.AllScanSlots()}
	svc := NewService(ledger, attendance, 10, nil)
	pts := 25
	event := fourSlotEvent(&pts)

	awarded, amount, err := svc.Evaluate(context.Background(), event, uuid.New())
	require.NoError(t, err)
	assert.True(t, awarded)
	assert.Equal(t, 25, amount)
}

func TestReEvaluationIsIdempotent(t *testing.T) {
	ledger := newMockLedger()
	attendance := &mockAttendance{slots: models.AllScanSlots()}
	svc := NewService(ledger, attendance, 10, nil)
	event := fourSlotEvent(nil)
	userID := uuid.New()

	awarded, _, err := svc.Evaluate(context.Background(), event, userID)
	require.NoError(t, err)
	assert.True(t, awarded)

	awarded, amount, err := svc.Evaluate(context.Background(), event, userID)
	require.NoError(t, err)
	assert.False(t, awarded)
	assert.Zero(t, amount)
	assert.Len(t, ledger.awards, 1)
}

func TestReducedSlotSubsetQualifies(t *testing.T) {
	ledger := newMockLedger()
	attendance := &mockAttendance{slots: []models.ScanSlot{models.SlotMorningIn}}
	svc := NewService(ledger, attendance, 10, nil)
	event := twoSlotEvent()
	userID := uuid.New()

	awarded, _, err := svc.Evaluate(context.Background(), event, userID)
	require.NoError(t, err)
	assert.False(t, awarded)

	attendance.slots = []models.ScanSlot{models.SlotMorningIn, models.SlotMorningOut}
	awarded, amount, err := svc.Evaluate(context.Background(), event, userID)
	require.NoError(t, err)
	assert.True(t, awarded)
	assert.Equal(t, 10, amount)
}

func TestNoEnabledSlotsNeverAwards(t *testing.T) {
	ledger := newMockLedger()
	attendance := &mockAttendance{}
	svc := NewService(ledger, attendance, 10, nil)
	event := &models.Event{ID: uuid.New(), Slots: map[models.ScanSlot]models.SlotWindow{}}

	awarded, _, err := svc.Evaluate(context.Background(), event, uuid.New())
	require.NoError(t, err)
	assert.False(t, awarded)
	assert.Empty(t, ledger.awards)
}
