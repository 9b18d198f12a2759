package handlers

import (
	"context"
	"net/http"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/co2quest/carbon-tracker/internal/advisor"
	"github.com/co2quest/carbon-tracker/internal/aggregate"
	"github.com/co2quest/carbon-tracker/internal/db"
	"github.com/co2quest/carbon-tracker/internal/location"
	"github.com/co2quest/carbon-tracker/internal/middleware"
	"github.com/co2quest/carbon-tracker/internal/models"
)

type fakeRecordStore struct {
	mu      sync.Mutex
	docs    map[string]*models.UserRecordDoc
	failure error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{docs: make(map[string]*models.UserRecordDoc)}
}

func (s *fakeRecordStore) AppendRecord(_ context.Context, userID string, rec models.TripRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	doc, ok := s.docs[userID]
	if !ok {
		doc = &models.UserRecordDoc{
			UserID:           userID,
			DailyPoints:      make(map[string][]models.TripRecord),
			TotalCarbonDaily: make(map[string]float64),
		}
		s.docs[userID] = doc
	}
	day := rec.Day()
	doc.DailyPoints[day] = append(doc.DailyPoints[day], rec)
	doc.TotalCarbonDaily[day] += rec.CarbonEmissionKg
	return nil
}

func (s *fakeRecordStore) ReadUserDocument(_ context.Context, userID string) (*models.UserRecordDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return nil, s.failure
	}
	return s.docs[userID], nil
}

type fakeVehicleStore struct {
	mu       sync.Mutex
	vehicles map[string]*models.Vehicle
}

func newFakeVehicleStore() *fakeVehicleStore {
	return &fakeVehicleStore{vehicles: make(map[string]*models.Vehicle)}
}

func (s *fakeVehicleStore) InsertVehicle(_ context.Context, v models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = &v
	return nil
}

func (s *fakeVehicleStore) FindVehiclesByUser(_ context.Context, userID string) ([]models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Vehicle
	for _, v := range s.vehicles {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *fakeVehicleStore) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, db.ErrVehicleNotFound
	}
	found := *v
	return &found, nil
}

func (s *fakeVehicleStore) AddDistance(_ context.Context, id string, km float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return db.ErrVehicleNotFound
	}
	v.TotalDistanceKm += km
	return nil
}

type fakeUserCollection struct {
	mu    sync.Mutex
	users map[string]*models.User // by username
}

func newFakeUserCollection() *fakeUserCollection {
	return &fakeUserCollection{users: make(map[string]*models.User)}
}

func (c *fakeUserCollection) InsertUser(_ context.Context, user models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user.Username] = &user
	return nil
}

func (c *fakeUserCollection) FindUserByID(_ context.Context, id string) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.users {
		if u.ID.Hex() == id {
			return u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (c *fakeUserCollection) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.users[username]; ok {
		return u, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (c *fakeUserCollection) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

type fakeSub struct {
	ch   chan models.GeoSample
	once sync.Once
}

func (f *fakeSub) Fixes() <-chan models.GeoSample { return f.ch }

func (f *fakeSub) Cancel() {
	f.once.Do(func() { close(f.ch) })
}

type fakeProvider struct {
	denied bool
	subs   []*fakeSub
}

func (p *fakeProvider) Subscribe(_ context.Context, _ string) (location.Subscription, error) {
	if p.denied {
		return nil, location.ErrPermissionDenied
	}
	sub := &fakeSub{ch: make(chan models.GeoSample, 16)}
	p.subs = append(p.subs, sub)
	return sub, nil
}

type fakePredictor struct {
	prediction float64
	err        error
	lastWindow aggregate.ForecastWindow
}

func (p *fakePredictor) Predict(_ context.Context, win aggregate.ForecastWindow) (float64, error) {
	p.lastWindow = win
	if p.err != nil {
		return 0, p.err
	}
	return p.prediction, nil
}

type fakeRecommender struct {
	text string
	err  error
}

func (r *fakeRecommender) Recommend(_ context.Context, doc *models.UserRecordDoc) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if doc == nil || len(doc.DailyPoints) == 0 {
		return "", advisor.ErrNoHistory
	}
	return r.text, nil
}

// withClaims attaches claims the way the auth middleware does.
func withClaims(r *http.Request, userID string) *http.Request {
	claims := &models.Claims{UserID: userID, Username: "tester"}
	return r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, claims))
}
