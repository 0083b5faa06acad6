package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/backend/internal/models"
)

var errNotFound = errors.New("no rows")

type regKey struct {
	event, user uuid.UUID
}

type mockStore struct {
	tokens   map[string]*models.QRCode
	regs     map[regKey]*models.Registration
	records  map[regKey][]models.ScanSlot
	attended map[regKey]bool
	touched  int
	autoRegs int
}

func newMockStore() *mockStore {
	return &mockStore{
		tokens:   map[string]*models.QRCode{},
		regs:     map[regKey]*models.Registration{},
		records:  map[regKey][]models.ScanSlot{},
		attended: map[regKey]bool{},
	}
}

func (m *mockStore) ResolveToken(_ context.Context, token string) (*models.QRCode, error) {
	qr, ok := m.tokens[token]
	if !ok {
		return nil, errNotFound
	}
	return qr, nil
}

func (m *mockStore) GetRegistration(_ context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	reg, ok := m.regs[regKey{eventID, userID}]
	if !ok {
		return nil, errNotFound
	}
	return reg, nil
}

func (m *mockStore) AutoRegister(_ context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	m.autoRegs++
	reg := &models.Registration{
		ID: uuid.New(), EventID: eventID, UserID: userID,
		Status: models.RegStatusPreRegistered, Mandatory: true,
	}
	m.regs[regKey{eventID, userID}] = reg
	return reg, nil
}

func (m *mockStore) InsertRecord(_ context.Context, rec *models.AttendanceRecord) (bool, error) {
	key := regKey{rec.EventID, rec.UserID}
	for _, s := range m.records[key] {
		if s == rec.Slot {
			return false, nil
		}
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	m.records[key] = append(m.records[key], rec.Slot)
	return true, nil
}

func (m *mockStore) MarkAttended(_ context.Context, eventID, userID uuid.UUID, _ time.Time) error {
	m.attended[regKey{eventID, userID}] = true
	return nil
}

func (m *mockStore) TouchToken(_ context.Context, _ uuid.UUID, _ time.Time) error {
	m.touched++
	return nil
}

func (m *mockStore) IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

type mockQualifier struct {
	calls   int
	awarded bool
	amount  int
}

func (q *mockQualifier) Evaluate(_ context.Context, _ *models.Event, _ uuid.UUID) (bool, int, error) {
	q.calls++
	return q.awarded, q.amount, nil
}

func at(h, m, s int) time.Time {
	return time.Date(2026, 3, 10, h, m, s, 0, time.UTC)
}

func testEvent(orgID uuid.UUID, mandatory bool) *models.Event {
	return &models.Event{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Mandatory:      mandatory,
		StartsAt:       at(9, 0, 0),
		EndsAt:         at(17, 0, 0),
		Slots: map[models.ScanSlot]models.SlotWindow{
			models.SlotMorningIn:    {Enabled: true, StartsAt: at(9, 0, 0), EndsAt: at(9, 30, 0)},
			models.SlotMorningOut:   {Enabled: true, StartsAt: at(11, 30, 0), EndsAt: at(12, 0, 0)},
			models.SlotAfternoonIn:  {Enabled: false},
			models.SlotAfternoonOut: {Enabled: false},
		},
	}
}

type fixture struct {
	store     *mockStore
	qualifier *mockQualifier
	svc       *Service
	event     *models.Event
	userID    uuid.UUID
	token     string
}

func setup(t *testing.T, mandatory bool) *fixture {
	t.Helper()
	orgID := uuid.New()
	f := &fixture{
		store:     newMockStore(),
		qualifier: &mockQualifier{},
		event:     testEvent(orgID, mandatory),
		userID:    uuid.New(),
		token:     "deadbeefdeadbeefdeadbeefdeadbeef",
	}
	f.store.tokens[f.token] = &models.QRCode{
		ID: uuid.New(), UserID: f.userID, OrganizationID: orgID, Token: f.token, IsActive: true,
	}
	f.svc = NewService(f.store, f.qualifier, nil, nil)
	return f
}

func (f *fixture) register(status models.RegistrationStatus) {
	f.store.regs[regKey{f.event.ID, f.userID}] = &models.Registration{
		ID: uuid.New(), EventID: f.event.ID, UserID: f.userID, Status: status,
	}
}

func (f *fixture) scan(slot models.ScanSlot, now time.Time) (*ScanResult, error) {
	return f.svc.Scan(context.Background(), f.event, ScanInput{
		Token: f.token, Slot: slot, ScannedBy: uuid.New(), Now: now,
	})
}

func TestScanWindowBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"just before start", at(8, 59, 59), ErrOutsideWindow},
		{"exactly at start", at(9, 0, 0), nil},
		{"inside window", at(9, 15, 0), nil},
		{"last second", at(9, 29, 59), nil},
		{"exactly at end", at(9, 30, 0), ErrOutsideWindow},
		{"after end", at(10, 0, 0), ErrOutsideWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t, false)
			f.register(models.RegStatusPreRegistered)
			result, err := f.scan(models.SlotMorningIn, tc.now)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.userID, result.UserID)
			assert.Equal(t, models.SlotMorningIn, result.Record.Slot)
		})
	}
}

func TestScanUnknownTokenRejected(t *testing.T) {
	f := setup(t, false)
	f.register(models.RegStatusPreRegistered)
	_, err := f.svc.Scan(context.Background(), f.event, ScanInput{
		Token: "not-a-token", Slot: models.SlotMorningIn, Now: at(9, 5, 0),
	})
	assert.ErrorIs(t, err, ErrInvalidQR)
}

func TestScanForeignOrgTokenRejected(t *testing.T) {
	f := setup(t, false)
	f.register(models.RegStatusPreRegistered)
	f.store.tokens[f.token].OrganizationID = uuid.New()
	_, err := f.scan(models.SlotMorningIn, at(9, 5, 0))
	assert.ErrorIs(t, err, ErrInvalidQR)
}

func TestScanUnregisteredRejected(t *testing.T) {
	f := setup(t, false)
	_, err := f.scan(models.SlotMorningIn, at(9, 5, 0))
	assert.ErrorIs(t, err, ErrUnregistered)
	assert.Zero(t, f.store.autoRegs)
}

func TestScanCancelledRegistrationRejected(t *testing.T) {
	f := setup(t, false)
	f.register(models.RegStatusCancelled)
	_, err := f.scan(models.SlotMorningIn, at(9, 5, 0))
	assert.ErrorIs(t, err, ErrUnregistered)
}

func TestScanMandatoryAutoRegisters(t *testing.T) {
	f := setup(t, true)
	result, err := f.scan(models.SlotMorningIn, at(9, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.autoRegs)
	assert.Equal(t, f.userID, result.UserID)
}

func TestScanMandatoryRevivesCancelled(t *testing.T) {
	f := setup(t, true)
	f.register(models.RegStatusCancelled)
	_, err := f.scan(models.SlotMorningIn, at(9, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.autoRegs)
}

func TestScanDisabledSlotRejected(t *testing.T) {
	f := setup(t, false)
	f.register(models.RegStatusPreRegistered)
	_, err := f.scan(models.SlotAfternoonIn, at(9, 5, 0))
	assert.ErrorIs(t, err, ErrSlotDisabled)
}

func TestScanDuplicateRejected(t *testing.T) {
	f := setup(t, false)
	f.register(models.RegStatusPreRegistered)
	_, err := f.scan(models.SlotMorningIn, at(9, 5, 0))
	require.NoError(t, err)
	_, err = f.scan(models.SlotMorningIn, at(9, 10, 0))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestScanCheckInMarksAttended(t *testing.T) {
	f := setup(t, false)
	f.register(models.RegStatusPreRegistered)
	_, err := f.scan(models.SlotMorningIn, at(9, 5, 0))
	require.NoError(t, err)
	assert.True(t, f.store.attended[regKey{f.event.ID, f.userID}])
}

func TestScanCheckOutDoesNotMarkAttended(t *testing.T) {
	f := setup(t, false)
	f.register(models.RegStatusPreRegistered)
	_, err := f.scan(models.SlotMorningOut, at(11, 45, 0))
	require.NoError(t, err)
	assert.False(t, f.store.attended[regKey{f.event.ID, f.userID}])
}

func TestScanRunsQualifierAndStampsToken(t *testing.T) {
	f := setup(t, false)
	f.register(models.RegStatusPreRegistered)
	f.qualifier.awarded, f.qualifier.amount = true, 10

	result, err := f.scan(models.SlotMorningIn, at(9, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, f.qualifier.calls)
	assert.True(t, result.PointsAwarded)
	assert.Equal(t, 10, result.PointsAmount)
	assert.Equal(t, 1, f.store.touched)
}
