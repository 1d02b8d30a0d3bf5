package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/internal/service/challenges"
	"github.com/bhashahub/crowdsource/internal/service/contributions"
	"github.com/bhashahub/crowdsource/internal/service/users"
	"github.com/bhashahub/crowdsource/internal/storage"
)

// Mock Contribution Service
type mockContributionService struct {
	submitted  []contributions.SubmitRequest
	submitErr  error
	reviewErr  error
	reviewer   *models.User
	approve    bool
	listed     []models.Contribution
	listErr    error
	lastLimit  int
	lastFilter string
}

func (m *mockContributionService) Submit(_ context.Context, ownerID string, req contributions.SubmitRequest) (*models.Contribution, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.submitted = append(m.submitted, req)
	return &models.Contribution{
		ID:        "c-1",
		OwnerID:   ownerID,
		Language:  req.Language,
		Kind:      req.Kind,
		Content:   req.Content,
		CreatedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockContributionService) Review(_ context.Context, id string, reviewer *models.User, approve bool) (*models.Contribution, error) {
	m.reviewer = reviewer
	m.approve = approve
	if m.reviewErr != nil {
		return nil, m.reviewErr
	}
	return &models.Contribution{ID: id, Validated: approve, ReviewedBy: &reviewer.ID}, nil
}

func (m *mockContributionService) ListMine(_ context.Context, _ string, language string, limit int) ([]models.Contribution, error) {
	m.lastFilter = language
	m.lastLimit = limit
	return m.listed, m.listErr
}

func (m *mockContributionService) ListByLanguage(_ context.Context, language string, limit int) ([]models.Contribution, error) {
	m.lastFilter = language
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	if language == "xx" {
		return nil, fmt.Errorf("%w: unsupported language %q", service.ErrInvalidInput, language)
	}
	return m.listed, nil
}

// Mock Challenge Service
type mockChallengeService struct {
	active    []models.Challenge
	joinErr   error
	createErr error
	created   *challenges.CreateRequest
	actor     *models.User
}

func (m *mockChallengeService) Create(_ context.Context, actor *models.User, req challenges.CreateRequest) (*models.Challenge, error) {
	m.actor = actor
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = &req
	return &models.Challenge{ID: "ch-1", Title: req.Title, Language: req.Language, Kind: req.Kind, TargetCount: req.TargetCount}, nil
}

func (m *mockChallengeService) Get(_ context.Context, challengeID string) (*challenges.Detail, error) {
	for _, ch := range m.active {
		if ch.ID == challengeID {
			return &challenges.Detail{Challenge: ch, Participants: 3, Open: true}, nil
		}
	}
	return nil, fmt.Errorf("challenge %s: %w", challengeID, service.ErrNotFound)
}

func (m *mockChallengeService) Join(_ context.Context, userID, challengeID string) (*models.ChallengeParticipation, error) {
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	return &models.ChallengeParticipation{ID: 1, UserID: userID, ChallengeID: challengeID}, nil
}

func (m *mockChallengeService) ListActive(_ context.Context, language string) ([]models.Challenge, error) {
	var out []models.Challenge
	for _, ch := range m.active {
		if language == "" || ch.Language == language {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (m *mockChallengeService) ListForUser(_ context.Context, userID string) ([]models.ChallengeParticipation, error) {
	return []models.ChallengeParticipation{{ID: 7, UserID: userID, ChallengeID: "ch-1", ContributionsCount: 2}}, nil
}

// Mock Language Service
type mockLanguageService struct {
	languages []models.LanguageMetadata
}

func (m *mockLanguageService) ListActive(context.Context) ([]models.LanguageMetadata, error) {
	return m.languages, nil
}

func (m *mockLanguageService) Get(_ context.Context, code string) (*models.LanguageMetadata, error) {
	for i := range m.languages {
		if m.languages[i].Code == code {
			return &m.languages[i], nil
		}
	}
	return nil, fmt.Errorf("language %s: %w", code, service.ErrNotFound)
}

// Mock User Service
type mockUserService struct {
	synced  []users.Identity
	syncErr error
	stored  map[string]*models.User
}

func newMockUserService() *mockUserService {
	return &mockUserService{stored: map[string]*models.User{}}
}

func (m *mockUserService) Sync(_ context.Context, id users.Identity) (*models.User, error) {
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	m.synced = append(m.synced, id)
	u, ok := m.stored[id.ID]
	if !ok {
		u = &models.User{ID: id.ID}
		m.stored[id.ID] = u
	}
	u.Email, u.Name, u.Role = id.Email, id.Name, id.Role
	return u, nil
}

func (m *mockUserService) SetPreferredLanguage(_ context.Context, userID, language string) (*models.User, error) {
	if language != "hi" && language != "ta" {
		return nil, fmt.Errorf("%w: unsupported language %q", service.ErrInvalidInput, language)
	}
	u, ok := m.stored[userID]
	if !ok {
		return nil, service.ErrNotFound
	}
	u.PreferredLanguage = language
	return u, nil
}

func (m *mockUserService) List(_ context.Context, role string) ([]models.User, error) {
	if role == "owner" {
		return nil, fmt.Errorf("%w: unknown role %q", service.ErrInvalidInput, role)
	}
	out := []models.User{}
	for _, u := range m.stored {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

// Mock upload presigner and ticket store
type mockPresigner struct {
	err error
}

func (m *mockPresigner) PresignUpload(_ context.Context, ownerID string, kind models.ContributionKind, contentType string) (*storage.PresignedUpload, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := storage.CheckContentType(kind, contentType); err != nil {
		return nil, err
	}
	return &storage.PresignedUpload{
		URL:         "https://bucket.example.org/" + string(kind) + "/" + ownerID + "/abc",
		ObjectKey:   string(kind) + "/" + ownerID + "/abc",
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(15 * time.Minute),
	}, nil
}

type mockTickets struct {
	issued map[string]string
	err    error
}

func (m *mockTickets) Issue(_ context.Context, objectKey, ownerID string) error {
	if m.err != nil {
		return m.err
	}
	if m.issued == nil {
		m.issued = map[string]string{}
	}
	m.issued[objectKey] = ownerID
	return nil
}

type mockHealth struct {
	err error
}

func (m *mockHealth) Health() error { return m.err }

var errBackend = errors.New("backend exploded")
