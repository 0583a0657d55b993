package service

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/models"
	"github.com/datasprint/datasprint-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type recordingEvents struct {
	events []dto.ChangeEvent
}

func (r *recordingEvents) PublishChange(_ context.Context, event dto.ChangeEvent) {
	r.events = append(r.events, event)
}

type recordingInvalidator struct {
	calls int
}

func (r *recordingInvalidator) Invalidate(context.Context) {
	r.calls++
}

type stubChallengeRepo struct {
	challenges      []models.Challenge
	incrementCalls  map[string]int
	incrementErr    error
	failIncrementOn string
}

func (s *stubChallengeRepo) List(context.Context) ([]models.Challenge, error) {
	return s.challenges, nil
}

func (s *stubChallengeRepo) GetByID(_ context.Context, id string) (models.Challenge, error) {
	for _, challenge := range s.challenges {
		if challenge.ID == id {
			return challenge, nil
		}
	}
	return models.Challenge{}, gorm.ErrRecordNotFound
}

func (s *stubChallengeRepo) Create(_ context.Context, challenge *models.Challenge) error {
	s.challenges = append(s.challenges, *challenge)
	return nil
}

func (s *stubChallengeRepo) Update(_ context.Context, challenge *models.Challenge) error {
	for i := range s.challenges {
		if s.challenges[i].ID == challenge.ID {
			s.challenges[i] = *challenge
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubChallengeRepo) Delete(_ context.Context, id string) error {
	for i := range s.challenges {
		if s.challenges[i].ID == id {
			s.challenges = append(s.challenges[:i], s.challenges[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *stubChallengeRepo) IncrementSubmissionCount(_ context.Context, id string) error {
	if s.incrementErr != nil && (s.failIncrementOn == "" || s.failIncrementOn == id) {
		return s.incrementErr
	}
	if s.incrementCalls == nil {
		s.incrementCalls = make(map[string]int)
	}
	s.incrementCalls[id]++
	for i := range s.challenges {
		if s.challenges[i].ID == id {
			s.challenges[i].SubmissionCount++
		}
	}
	return nil
}

type stubSubmissionRepo struct {
	submissions []models.Submission
	createErr   error
}

func (s *stubSubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	matches := make([]models.Submission, 0, len(s.submissions))
	for _, submission := range s.submissions {
		if filter.ChallengeID != nil && submission.ChallengeID != *filter.ChallengeID {
			continue
		}
		if filter.UserID != nil && submission.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		matches = append(matches, submission)
	}
	return matches, nil
}

func (s *stubSubmissionRepo) GetByID(_ context.Context, id string) (models.Submission, error) {
	for _, submission := range s.submissions {
		if submission.ID == id {
			return submission, nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (s *stubSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.submissions = append(s.submissions, *submission)
	return nil
}

func (s *stubSubmissionRepo) Update(_ context.Context, submission *models.Submission) error {
	for i := range s.submissions {
		if s.submissions[i].ID == submission.ID {
			s.submissions[i] = *submission
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type stubUserRepo struct {
	users         map[string]*models.User
	order         []string
	derivedPoints map[string]int
	derivedBadges map[string]datatypes.JSON
	removedIDs    []string
}

func newStubUserRepo(users ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{
		users:         make(map[string]*models.User),
		derivedPoints: make(map[string]int),
		derivedBadges: make(map[string]datatypes.JSON),
	}
	for _, user := range users {
		repo.users[user.ID] = user
		repo.order = append(repo.order, user.ID)
	}
	return repo
}

func (s *stubUserRepo) List(context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, *s.users[id])
	}
	return users, nil
}

func (s *stubUserRepo) GetByID(_ context.Context, id string) (models.User, error) {
	if user, ok := s.users[id]; ok {
		return *user, nil
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) Create(_ context.Context, user *models.User) error {
	copied := *user
	if _, ok := s.users[user.ID]; !ok {
		s.order = append(s.order, user.ID)
	}
	s.users[user.ID] = &copied
	return nil
}

func (s *stubUserRepo) Update(_ context.Context, user *models.User) error {
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *stubUserRepo) AcceptChallenge(_ context.Context, entry *models.AcceptedChallenge) error {
	user, ok := s.users[entry.UserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, existing := range user.AcceptedChallenges {
		if existing.ChallengeID == entry.ChallengeID {
			return nil
		}
	}
	user.AcceptedChallenges = append(user.AcceptedChallenges, *entry)
	return nil
}

func (s *stubUserRepo) MarkChallengeCompleted(_ context.Context, userID, challengeID string) error {
	user, ok := s.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range user.AcceptedChallenges {
		if user.AcceptedChallenges[i].ChallengeID == challengeID {
			user.AcceptedChallenges[i].Completed = true
		}
	}
	return nil
}

func (s *stubUserRepo) RemoveAcceptedChallenges(_ context.Context, userID string, challengeIDs []string) error {
	user, ok := s.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	drop := make(map[string]struct{}, len(challengeIDs))
	for _, id := range challengeIDs {
		drop[id] = struct{}{}
		s.removedIDs = append(s.removedIDs, id)
	}
	kept := user.AcceptedChallenges[:0:0]
	for _, entry := range user.AcceptedChallenges {
		if _, ok := drop[entry.ChallengeID]; !ok {
			kept = append(kept, entry)
		}
	}
	user.AcceptedChallenges = kept
	return nil
}

func (s *stubUserRepo) UpdateDerivedState(_ context.Context, userID string, points int, badges datatypes.JSON) error {
	s.derivedPoints[userID] = points
	s.derivedBadges[userID] = badges
	if user, ok := s.users[userID]; ok {
		user.Points = points
		user.Badges = badges
	}
	return nil
}

func (s *stubUserRepo) TouchLastActive(_ context.Context, userID string, at time.Time) error {
	if user, ok := s.users[userID]; ok {
		user.LastActive = at
	}
	return nil
}

type stubUploader struct {
	result UploadResult
	err    error
	calls  int
}

func (s *stubUploader) Forward(context.Context, string, int64, io.Reader) (UploadResult, error) {
	s.calls++
	if s.err != nil {
		return UploadResult{}, s.err
	}
	return s.result, nil
}
