package contributions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/repository"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/internal/storage"
	"github.com/bhashahub/crowdsource/pkg/logger"
	"github.com/bhashahub/crowdsource/test/mocks"
)

// Mock repositories

type mockContributionRepo struct {
	items     map[string]*models.Contribution
	createErr error
	lastLimit int
}

func newMockContributionRepo() *mockContributionRepo {
	return &mockContributionRepo{items: make(map[string]*models.Contribution)}
}

func (m *mockContributionRepo) Create(_ context.Context, c *models.Contribution) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *c
	m.items[c.ID] = &copied
	return nil
}

func (m *mockContributionRepo) GetByID(_ context.Context, id string) (*models.Contribution, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, repository.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (m *mockContributionRepo) ListByOwner(_ context.Context, ownerID, language string, limit int) ([]models.Contribution, error) {
	m.lastLimit = limit
	out := []models.Contribution{}
	for _, c := range m.items {
		if c.OwnerID == ownerID && (language == "" || c.Language == language) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockContributionRepo) ListByLanguage(_ context.Context, language string, limit int) ([]models.Contribution, error) {
	m.lastLimit = limit
	out := []models.Contribution{}
	for _, c := range m.items {
		if c.Language == language {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockContributionRepo) MarkReviewed(_ context.Context, id, reviewerID string, approve bool, at time.Time) (bool, error) {
	c, ok := m.items[id]
	if !ok || c.Validated {
		return false, nil
	}
	c.Validated = approve
	c.ReviewedBy = &reviewerID
	c.ReviewedAt = &at
	return true, nil
}

type mockLanguageCounter struct {
	totals map[string]int
	err    error
}

func (m *mockLanguageCounter) IncrementTotal(_ context.Context, code string) error {
	if m.err != nil {
		return m.err
	}
	m.totals[code]++
	return nil
}

type mockObjects struct {
	sizes map[string]int64
}

func (m *mockObjects) ObjectSize(_ context.Context, key string) (int64, error) {
	size, ok := m.sizes[key]
	if !ok {
		return 0, storage.ErrObjectNotFound
	}
	return size, nil
}

type mockProgress struct {
	recorded []string
	err      error
}

func (m *mockProgress) RecordContribution(_ context.Context, c *models.Contribution) error {
	m.recorded = append(m.recorded, c.ID)
	return m.err
}

type fixture struct {
	svc       *Service
	repo      *mockContributionRepo
	languages *mockLanguageCounter
	tickets   *mocks.MockTicketStore
	objects   *mockObjects
	progress  *mockProgress
}

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func setupService() *fixture {
	f := &fixture{
		repo:      newMockContributionRepo(),
		languages: &mockLanguageCounter{totals: make(map[string]int)},
		tickets:   mocks.NewMockTicketStore(),
		objects:   &mockObjects{sizes: make(map[string]int64)},
		progress:  &mockProgress{},
	}
	f.svc = NewServiceWithInterfaces(f.repo, f.languages, f.tickets, f.objects, f.progress,
		[]string{"hi", "ta", "bn"}, 1<<20, logger.Nop())
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) upload(key, owner string, size int64) {
	_ = f.tickets.Issue(context.Background(), key, owner)
	f.objects.sizes[key] = size
}

func TestSubmit_Text(t *testing.T) {
	f := setupService()

	c, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "hi",
		Kind:     models.KindText,
		Content:  "  नमस्ते दुनिया  ",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "alice", c.OwnerID)
	assert.Equal(t, "नमस्ते दुनिया", c.Content)
	assert.Equal(t, 2, c.WordCount)
	assert.Equal(t, models.DifficultyEasy, c.Difficulty)
	assert.Equal(t, testNow, c.CreatedAt)
	assert.False(t, c.Validated)

	assert.Contains(t, f.repo.items, c.ID)
	assert.Equal(t, 1, f.languages.totals["hi"])
	assert.Equal(t, []string{c.ID}, f.progress.recorded)
}

func TestSubmit_TextDifficulty(t *testing.T) {
	f := setupService()

	long, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "ta", Kind: models.KindText, Content: strings.Repeat("அ", 101),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyMedium, long.Difficulty)

	exact, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "ta", Kind: models.KindText, Content: strings.Repeat("அ", 100),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyEasy, exact.Difficulty)

	supplied, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "ta", Kind: models.KindText, Content: "x", Difficulty: models.DifficultyHard,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyHard, supplied.Difficulty)
}

func TestSubmit_Voice(t *testing.T) {
	f := setupService()
	f.upload("voice/alice/a.ogg", "alice", 4096)

	c, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language:        "bn",
		Kind:            models.KindVoice,
		MediaReference:  "voice/alice/a.ogg",
		DurationSeconds: 12.5,
		Transcript:      "আমি",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4096), c.SizeBytes)
	assert.Equal(t, 12.5, c.DurationSeconds)
	assert.Empty(t, c.Content)
	assert.False(t, f.tickets.Has("voice/alice/a.ogg"), "ticket consumed")

	_, err = f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "bn", Kind: models.KindVoice, MediaReference: "voice/alice/a.ogg",
	})
	assert.ErrorIs(t, err, service.ErrUploadTicket, "ticket cannot be reused")
}

func TestSubmit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  SubmitRequest
		want error
	}{
		{"unsupported language", SubmitRequest{Language: "fr", Kind: models.KindText, Content: "x"}, service.ErrInvalidInput},
		{"missing language", SubmitRequest{Kind: models.KindText, Content: "x"}, service.ErrInvalidInput},
		{"unknown kind", SubmitRequest{Language: "hi", Kind: "video", Content: "x"}, service.ErrInvalidInput},
		{"blank text", SubmitRequest{Language: "hi", Kind: models.KindText, Content: "   "}, service.ErrInvalidInput},
		{"text with media", SubmitRequest{Language: "hi", Kind: models.KindText, Content: "x", MediaReference: "image/alice/k"}, service.ErrInvalidInput},
		{"voice without media", SubmitRequest{Language: "hi", Kind: models.KindVoice}, service.ErrInvalidInput},
		{"voice with content", SubmitRequest{Language: "hi", Kind: models.KindVoice, MediaReference: "voice/alice/k", Content: "x"}, service.ErrInvalidInput},
		{"image with duration", SubmitRequest{Language: "hi", Kind: models.KindImage, MediaReference: "image/alice/k", DurationSeconds: 3}, service.ErrInvalidInput},
		{"media of other kind", SubmitRequest{Language: "hi", Kind: models.KindImage, MediaReference: "voice/alice/k"}, service.ErrInvalidInput},
		{"bad difficulty", SubmitRequest{Language: "hi", Kind: models.KindText, Content: "x", Difficulty: "extreme"}, service.ErrInvalidInput},
		{"someone else's key", SubmitRequest{Language: "hi", Kind: models.KindImage, MediaReference: "image/bob/k"}, service.ErrUploadTicket},
		{"not uploaded", SubmitRequest{Language: "hi", Kind: models.KindImage, MediaReference: "image/alice/missing"}, service.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupService()
			_, err := f.svc.Submit(context.Background(), "alice", tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.repo.items)
		})
	}
}

func TestSubmit_MediaTooLarge(t *testing.T) {
	f := setupService()
	f.upload("image/alice/big.png", "alice", 2<<20)

	_, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "hi", Kind: models.KindImage, MediaReference: "image/alice/big.png",
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.True(t, f.tickets.Has("image/alice/big.png"), "ticket kept when rejected before redeem")
}

func TestSubmit_TicketStoreDown(t *testing.T) {
	f := setupService()
	f.upload("image/alice/k.png", "alice", 10)
	f.tickets.Err = errors.New("redis: connection refused")

	_, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "hi", Kind: models.KindImage, MediaReference: "image/alice/k.png",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrUploadTicket)
}

func TestSubmit_SideEffectFailuresAreNotFatal(t *testing.T) {
	f := setupService()
	f.languages.err = errors.New("db down")
	f.progress.err = errors.New("db down")

	c, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "hi", Kind: models.KindText, Content: "hello",
	})
	require.NoError(t, err)
	assert.Contains(t, f.repo.items, c.ID)
}

func TestSubmit_StoreFailureKeepsUploadClaimable(t *testing.T) {
	f := setupService()
	f.upload("voice/alice/a.ogg", "alice", 2048)
	req := SubmitRequest{Language: "hi", Kind: models.KindVoice, MediaReference: "voice/alice/a.ogg", DurationSeconds: 3}

	f.repo.createErr = errors.New("db down")
	_, err := f.svc.Submit(context.Background(), "alice", req)
	require.Error(t, err)
	assert.True(t, f.tickets.Has("voice/alice/a.ogg"), "ticket restored after failed save")

	f.repo.createErr = nil
	c, err := f.svc.Submit(context.Background(), "alice", req)
	require.NoError(t, err)
	assert.Equal(t, "voice/alice/a.ogg", c.MediaReference)
	assert.False(t, f.tickets.Has("voice/alice/a.ogg"))
}

func TestSubmit_StoreFailure(t *testing.T) {
	f := setupService()
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
		Language: "hi", Kind: models.KindText, Content: "hello",
	})
	require.Error(t, err)
	assert.Empty(t, f.languages.totals)
	assert.Empty(t, f.progress.recorded)
}

func TestReview(t *testing.T) {
	reviewer := &models.User{ID: "rev", Role: models.RoleReviewer}
	admin := &models.User{ID: "root", Role: models.RoleAdmin}
	plain := &models.User{ID: "bob", Role: models.RoleUser}

	setup := func(t *testing.T) (*fixture, string) {
		f := setupService()
		c, err := f.svc.Submit(context.Background(), "alice", SubmitRequest{
			Language: "hi", Kind: models.KindText, Content: "hello",
		})
		require.NoError(t, err)
		return f, c.ID
	}

	t.Run("approve", func(t *testing.T) {
		f, id := setup(t)
		c, err := f.svc.Review(context.Background(), id, reviewer, true)
		require.NoError(t, err)
		assert.True(t, c.Validated)
		assert.Equal(t, "rev", *c.ReviewedBy)
		assert.Equal(t, testNow, *c.ReviewedAt)

		_, err = f.svc.Review(context.Background(), id, admin, false)
		assert.ErrorIs(t, err, service.ErrAlreadyValidated)
	})

	t.Run("reject then approve", func(t *testing.T) {
		f, id := setup(t)
		c, err := f.svc.Review(context.Background(), id, reviewer, false)
		require.NoError(t, err)
		assert.False(t, c.Validated)

		c, err = f.svc.Review(context.Background(), id, admin, true)
		require.NoError(t, err)
		assert.True(t, c.Validated)
	})

	t.Run("plain user forbidden", func(t *testing.T) {
		f, id := setup(t)
		_, err := f.svc.Review(context.Background(), id, plain, true)
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("owner forbidden", func(t *testing.T) {
		f, id := setup(t)
		owner := &models.User{ID: "alice", Role: models.RoleReviewer}
		_, err := f.svc.Review(context.Background(), id, owner, true)
		assert.ErrorIs(t, err, service.ErrForbidden)
		assert.False(t, f.repo.items[id].Validated)
	})

	t.Run("missing", func(t *testing.T) {
		f, _ := setup(t)
		_, err := f.svc.Review(context.Background(), "nope", reviewer, true)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestListLimits(t *testing.T) {
	f := setupService()

	_, err := f.svc.ListMine(context.Background(), "alice", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultOwnerLimit, f.repo.lastLimit)

	_, err = f.svc.ListMine(context.Background(), "alice", "", 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, f.repo.lastLimit)

	_, err = f.svc.ListByLanguage(context.Background(), "hi", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguageLimit, f.repo.lastLimit)

	_, err = f.svc.ListByLanguage(context.Background(), "xx", 5)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
