// Package testutil holds in-memory stand-ins for the Postgres repositories and
// the mailer, shared by service and handler tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nextgendevs/ng-backend/internal/database"
	"github.com/nextgendevs/ng-backend/internal/models"
)

// Devices is an in-memory device store honouring the (owner, name) constraint.
// Setting Err makes every call fail with it.
type Devices struct {
	mu   sync.Mutex
	rows map[string]models.Device
	Err  error

	// DuplicateOnUpdate simulates losing the rename race to a concurrent writer
	DuplicateOnUpdate bool
}

func NewDevices(devices ...models.Device) *Devices {
	s := &Devices{rows: map[string]models.Device{}}
	for _, d := range devices {
		s.rows[d.DeviceID] = d
	}
	return s
}

// Get returns a copy of the stored row for assertions
func (s *Devices) Get(deviceID string) (models.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.rows[deviceID]
	return d, ok
}

func (s *Devices) nameTaken(ownerID, name, exclude string) bool {
	for id, d := range s.rows {
		if id != exclude && d.OwnerID == ownerID && d.Name == name {
			return true
		}
	}
	return false
}

func (s *Devices) Create(_ context.Context, d *models.Device) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if _, ok := s.rows[d.DeviceID]; ok || s.nameTaken(d.OwnerID, d.Name, "") {
		return nil, database.ErrDuplicate
	}
	row := *d
	row.CreatedAt = time.Now().UTC()
	s.rows[d.DeviceID] = row
	return &row, nil
}

func (s *Devices) GetByID(_ context.Context, deviceID string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	d, ok := s.rows[deviceID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &d, nil
}

func (s *Devices) ListIDs(_ context.Context) ([]string, error) {
	return s.ids(func(models.Device) bool { return true })
}

func (s *Devices) ListIDsByOwner(_ context.Context, ownerID string) ([]string, error) {
	return s.ids(func(d models.Device) bool { return d.OwnerID == ownerID })
}

func (s *Devices) ids(keep func(models.Device) bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	ids := []string{}
	for id, d := range s.rows {
		if keep(d) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Devices) NameTaken(_ context.Context, ownerID, name, exclude string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	return s.nameTaken(ownerID, name, exclude), nil
}

func (s *Devices) UpdateCredentials(_ context.Context, deviceID string, update models.DeviceUpdate) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.DuplicateOnUpdate {
		return nil, database.ErrDuplicate
	}
	d, ok := s.rows[deviceID]
	if !ok {
		return nil, database.ErrNotFound
	}
	if update.Name != nil {
		if s.nameTaken(d.OwnerID, *update.Name, deviceID) {
			return nil, database.ErrDuplicate
		}
		d.Name = *update.Name
	}
	if update.Emoji != nil {
		d.Emoji = *update.Emoji
	}
	s.rows[deviceID] = d
	return &d, nil
}

func (s *Devices) SaveMeasurement(_ context.Context, deviceID string, m models.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	d, ok := s.rows[deviceID]
	if !ok {
		return database.ErrNotFound
	}
	if m.TDS != nil {
		d.TDS = m.TDS
	}
	if m.PH != nil {
		d.PH = m.PH
	}
	if m.Turbidity != nil {
		d.Turbidity = m.Turbidity
	}
	if m.WaterTemperature != nil {
		d.WaterTemperature = m.WaterTemperature
	}
	battery, coords, risk, at := m.BatteryLevel, m.Coordinates, m.Risk, m.RecordedAt
	d.BatteryLevel = &battery
	d.Coordinates = &coords
	d.Risk = &risk
	d.UpdatedAt = &at
	s.rows[deviceID] = d
	return nil
}

func (s *Devices) Locations(_ context.Context) ([]models.DeviceLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.DeviceLocation
	for _, d := range s.rows {
		loc := models.DeviceLocation{Coordinates: d.Coordinates}
		if d.Location != nil {
			loc.Name = *d.Location
		}
		out = append(out, loc)
	}
	return out, nil
}

// Users is an in-memory account store with a unique email constraint
type Users struct {
	mu   sync.Mutex
	rows map[string]models.User
	Err  error
}

func NewUsers(users ...models.User) *Users {
	s := &Users{rows: map[string]models.User{}}
	for _, u := range users {
		s.rows[u.UserID] = u
	}
	return s
}

func (s *Users) Get(userID string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[userID]
	return u, ok
}

func (s *Users) GetByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.rows[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *Users) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, u := range s.rows {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Users) Create(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if _, ok := s.rows[u.UserID]; ok {
		return nil, database.ErrDuplicate
	}
	for _, other := range s.rows {
		if other.Email == u.Email {
			return nil, database.ErrDuplicate
		}
	}
	row := *u
	row.CreatedAt = time.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	s.rows[u.UserID] = row
	return &row, nil
}

func (s *Users) Update(_ context.Context, userID string, update models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.rows[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		for id, other := range s.rows {
			if id != userID && other.Email == *update.Email {
				return nil, database.ErrDuplicate
			}
		}
		u.Email = *update.Email
	}
	if update.Password != nil {
		u.Password = *update.Password
	}
	u.UpdatedAt = time.Now().UTC()
	s.rows[userID] = u
	return &u, nil
}

func (s *Users) Deactivate(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.rows[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.Deactivated = true
	u.DeactivationDate = &at
	s.rows[userID] = u
	return nil
}

func (s *Users) DeleteDeactivatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for id, u := range s.rows {
		if u.Deactivated && u.DeactivationDate != nil && !u.DeactivationDate.After(cutoff) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

// Mailer records verification links instead of sending them
type Mailer struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

type SentMail struct {
	To   string
	Link string
}

func (m *Mailer) SendVerification(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Link: link})
	return nil
}

// Last returns the most recent mail
func (m *Mailer) Last() (SentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// Publisher collects published measurement events
type Publisher struct {
	mu     sync.Mutex
	Events []models.MeasurementEvent
}

func (p *Publisher) Publish(_ context.Context, e models.MeasurementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
	return nil
}
