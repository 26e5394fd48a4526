// Package contributing tracks gamified quests, contribution history and
// SCL (Sacred Consciousness Level) progression against the platform's
// contributing API. The server owns all progression math; the tracker is a
// cache of the user's view plus the operations that mutate it.
package contributing

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/syntopia/go-syntopia-client/api"
)

const basePath = "/contributing"

var (
	NoClientErr      = errors.New("contributing.Tracker no api client")
	NoUserErr        = errors.New("contributing.Tracker no user id")
	NoGitHubOAuthErr = errors.New("github oauth not configured")
)

// Tracker is the client-side state of the contributing system for one user.
// All methods are safe for concurrent use.
type Tracker struct {
	client *api.Client
	logger zerolog.Logger
	github *GitHubOAuth

	mu              sync.Mutex
	userID          string
	quests          []Quest
	recommended     []Quest
	history         []Quest
	progress        *SCLProgress
	activeQuest     *Quest
	githubToken     string
	githubConnected bool
	lastErr         string
}

type TrackerOption func(*Tracker)

func WithLogger(logger zerolog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithGitHubOAuth enables local OAuth URL generation for the connect flow.
func WithGitHubOAuth(github *GitHubOAuth) TrackerOption {
	return func(t *Tracker) {
		t.github = github
	}
}

func NewTracker(client *api.Client, options ...TrackerOption) (*Tracker, error) {
	if client == nil {
		return nil, errors.Wrap(NoClientErr, "[NewTracker]")
	}
	tracker := &Tracker{
		client: client,
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(tracker)
	}
	return tracker, nil
}

// Initialize loads the full contributing view for userID: SCL progress,
// quests, recommendations and history, in that order. The first failing load
// aborts the sequence and leaves earlier results in place.
func (t *Tracker) Initialize(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.Wrap(NoUserErr, "[Tracker.Initialize]")
	}
	t.mu.Lock()
	t.userID = userID
	t.lastErr = ""
	t.mu.Unlock()

	steps := []struct {
		name string
		load func(context.Context, string) error
	}{
		{"scl progress", t.loadProgress},
		{"user quests", t.loadQuests},
		{"recommended quests", t.loadRecommended},
		{"contribution history", t.loadHistory},
	}
	for _, step := range steps {
		if err := step.load(ctx, userID); err != nil {
			t.setError(api.ErrorMessage(err, "Failed to initialize contributing system"))
			return errors.Wrapf(err, "[Tracker.Initialize] %s", step.name)
		}
	}

	t.logger.Debug().Str("userID", userID).Msg("contributing system initialized")
	return nil
}

// Refresh reloads everything for the current user.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	userID := t.userID
	t.mu.Unlock()
	return t.Initialize(ctx, userID)
}

func (t *Tracker) loadProgress(ctx context.Context, userID string) error {
	var progress SCLProgress
	if err := t.client.Get(ctx, fmt.Sprintf("%s/scl/%s/progress", basePath, userID), &progress); err != nil {
		return err
	}
	t.mu.Lock()
	t.progress = &progress
	t.mu.Unlock()
	return nil
}

func (t *Tracker) loadQuests(ctx context.Context, userID string) error {
	var quests []Quest
	if err := t.client.Get(ctx, fmt.Sprintf("%s/user/%s/history", basePath, userID), &quests); err != nil {
		return err
	}
	t.mu.Lock()
	t.quests = quests
	t.mu.Unlock()
	return nil
}

func (t *Tracker) loadRecommended(ctx context.Context, userID string) error {
	var quests []Quest
	if err := t.client.Get(ctx, fmt.Sprintf("%s/quests/%s/recommended", basePath, userID), &quests); err != nil {
		return err
	}
	t.mu.Lock()
	t.recommended = quests
	t.mu.Unlock()
	return nil
}

func (t *Tracker) loadHistory(ctx context.Context, userID string) error {
	var quests []Quest
	if err := t.client.Get(ctx, fmt.Sprintf("%s/user/%s/history", basePath, userID), &quests); err != nil {
		return err
	}
	t.mu.Lock()
	t.history = quests
	t.mu.Unlock()
	return nil
}

// StartQuest moves a quest to IN_PROGRESS and makes it the active quest.
// The server's returned quest replaces the local copy when the id is already
// known; an unknown id is never inserted into the quest list.
func (t *Tracker) StartQuest(ctx context.Context, questID, userID string) (*Quest, error) {
	var updated Quest
	err := t.client.Post(ctx, fmt.Sprintf("%s/quest/%s/start", basePath, questID),
		map[string]string{"userId": userID}, &updated)
	if err != nil {
		t.setError(api.ErrorMessage(err, "Failed to start quest"))
		return nil, errors.Wrap(err, "[Tracker.StartQuest]")
	}

	t.mu.Lock()
	t.replaceQuest(updated)
	t.activeQuest = &updated
	t.mu.Unlock()

	t.logger.Info().Str("questID", questID).Msg("quest started")
	return &updated, nil
}

// CompleteQuest marks a quest COMPLETED and reloads SCL progress so the
// awarded experience shows up. Completing the active quest clears it.
func (t *Tracker) CompleteQuest(ctx context.Context, questID, userID string) (*Quest, error) {
	var completed Quest
	err := t.client.Post(ctx, fmt.Sprintf("%s/quest/%s/complete", basePath, questID),
		map[string]string{"userId": userID}, &completed)
	if err != nil {
		t.setError(api.ErrorMessage(err, "Failed to complete quest"))
		return nil, errors.Wrap(err, "[Tracker.CompleteQuest]")
	}

	t.mu.Lock()
	t.replaceQuest(completed)
	if t.activeQuest != nil && t.activeQuest.ID == questID {
		t.activeQuest = nil
	}
	t.mu.Unlock()

	if err := t.loadProgress(ctx, userID); err != nil {
		t.logger.Warn().Err(err).Msg("scl progress reload after completion failed")
	}

	t.logger.Info().Str("questID", questID).Msg("quest completed")
	return &completed, nil
}

// TrackContribution records an out-of-band contribution. The new quest is
// prepended so it appears first, then SCL progress is reloaded.
func (t *Tracker) TrackContribution(ctx context.Context, contribution ContributionRequest, userID string) (*Quest, error) {
	payload := struct {
		ContributionRequest
		UserID string `json:"userId"`
	}{contribution, userID}

	var tracked Quest
	if err := t.client.Post(ctx, basePath+"/contribution/track", payload, &tracked); err != nil {
		t.setError(api.ErrorMessage(err, "Failed to track contribution"))
		return nil, errors.Wrap(err, "[Tracker.TrackContribution]")
	}

	t.mu.Lock()
	t.quests = append([]Quest{tracked}, t.quests...)
	t.mu.Unlock()

	if err := t.loadProgress(ctx, userID); err != nil {
		t.logger.Warn().Err(err).Msg("scl progress reload after contribution failed")
	}
	return &tracked, nil
}

// CreateQuestFromIssue turns a GitHub issue into a quest and prepends it.
func (t *Tracker) CreateQuestFromIssue(ctx context.Context, issue GitHubIssue) (*Quest, error) {
	var quest Quest
	if err := t.client.Post(ctx, basePath+"/quest/create", issue, &quest); err != nil {
		t.setError(api.ErrorMessage(err, "Failed to create quest from issue"))
		return nil, errors.Wrap(err, "[Tracker.CreateQuestFromIssue]")
	}

	t.mu.Lock()
	t.quests = append([]Quest{quest}, t.quests...)
	t.mu.Unlock()
	return &quest, nil
}

// SyncWithGitHub asks the server to reconcile quests with the user's GitHub
// issues.
func (t *Tracker) SyncWithGitHub(ctx context.Context, userID string) (*GitHubSyncResult, error) {
	var result GitHubSyncResult
	if err := t.client.Post(ctx, fmt.Sprintf("%s/github/%s/sync", basePath, userID), nil, &result); err != nil {
		t.setError(api.ErrorMessage(err, "GitHub synchronization failed"))
		return nil, errors.Wrap(err, "[Tracker.SyncWithGitHub]")
	}
	return &result, nil
}

// ConnectGitHub stores the OAuth token, runs a sync, and on success reloads
// quests and recommendations.
func (t *Tracker) ConnectGitHub(ctx context.Context, token, userID string) (*GitHubSyncResult, error) {
	t.mu.Lock()
	t.githubToken = token
	t.mu.Unlock()

	result, err := t.SyncWithGitHub(ctx, userID)
	if err != nil {
		t.setError(api.ErrorMessage(err, "GitHub connection failed"))
		return nil, errors.Wrap(err, "[Tracker.ConnectGitHub]")
	}
	if result.Success {
		t.mu.Lock()
		t.githubConnected = true
		t.mu.Unlock()

		if err := t.loadQuests(ctx, userID); err != nil {
			t.logger.Warn().Err(err).Msg("quest reload after github sync failed")
		}
		if err := t.loadRecommended(ctx, userID); err != nil {
			t.logger.Warn().Err(err).Msg("recommendation reload after github sync failed")
		}
	}
	return result, nil
}

// GitHubAuthorizeURL produces the OAuth URL for the connect flow, together
// with the state to verify on redirect. Requires WithGitHubOAuth.
func (t *Tracker) GitHubAuthorizeURL() (authURL, state string, err error) {
	if t.github == nil {
		return "", "", errors.Wrap(NoGitHubOAuthErr, "[Tracker.GitHubAuthorizeURL]")
	}
	authURL, state = t.github.AuthorizeURL()
	return authURL, state, nil
}

// GitHubConnected reports whether an OAuth token has been attached and
// synced this session.
func (t *Tracker) GitHubConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.githubConnected
}

// HealthCheck probes the contributing API.
func (t *Tracker) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := t.client.Get(ctx, basePath+"/health", &status, api.NoAuth()); err != nil {
		return nil, errors.Wrap(err, "[Tracker.HealthCheck]")
	}
	return &status, nil
}

// ClearData resets the tracker to its pre-Initialize state.
func (t *Tracker) ClearData() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.userID = ""
	t.quests = nil
	t.recommended = nil
	t.history = nil
	t.progress = nil
	t.activeQuest = nil
	t.githubToken = ""
	t.githubConnected = false
	t.lastErr = ""
}

// Quests returns a copy of the user's quest list.
func (t *Tracker) Quests() []Quest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Quest(nil), t.quests...)
}

// RecommendedQuests returns a copy of the recommendation list.
func (t *Tracker) RecommendedQuests() []Quest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Quest(nil), t.recommended...)
}

// ContributionHistory returns a copy of the history list.
func (t *Tracker) ContributionHistory() []Quest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Quest(nil), t.history...)
}

// Progress returns a copy of the current SCL progress, or nil before load.
func (t *Tracker) Progress() *SCLProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.progress == nil {
		return nil
	}
	progress := *t.progress
	return &progress
}

// ActiveQuest returns the quest currently being worked on, or nil.
func (t *Tracker) ActiveQuest() *Quest {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.activeQuest == nil {
		return nil
	}
	quest := *t.activeQuest
	return &quest
}

// CurrentSCLLevel is the level number, 1 before any progress is loaded.
func (t *Tracker) CurrentSCLLevel() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.progress == nil {
		return 1
	}
	return t.progress.CurrentSCLLevel
}

// CurrentSCLName is the level name, "Sacred Seeker" before any load.
func (t *Tracker) CurrentSCLName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.progress == nil {
		return "Sacred Seeker"
	}
	return t.progress.CurrentSCLName
}

// AvailableQuests are the PROPOSED quests, recomputed from the quest list.
func (t *Tracker) AvailableQuests() []Quest {
	return t.QuestsByStatus(StatusProposed)
}

// ActiveQuests are the IN_PROGRESS quests.
func (t *Tracker) ActiveQuests() []Quest {
	return t.QuestsByStatus(StatusInProgress)
}

// CompletedQuests are the COMPLETED quests.
func (t *Tracker) CompletedQuests() []Quest {
	return t.QuestsByStatus(StatusCompleted)
}

// QuestByID finds a quest in the user's list.
func (t *Tracker) QuestByID(questID string) (Quest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, quest := range t.quests {
		if quest.ID == questID {
			return quest, true
		}
	}
	return Quest{}, false
}

func (t *Tracker) QuestsByType(questType QuestType) []Quest {
	return t.filterQuests(func(q Quest) bool { return q.QuestType == questType })
}

func (t *Tracker) QuestsByBusinessTrack(track BusinessTrack) []Quest {
	return t.filterQuests(func(q Quest) bool { return q.BusinessTrack == track })
}

func (t *Tracker) QuestsByStatus(status ContributionStatus) []Quest {
	return t.filterQuests(func(q Quest) bool { return q.Status == status })
}

// Error returns the last user-facing failure message, empty when the last
// operation succeeded.
func (t *Tracker) Error() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Tracker) ClearError() {
	t.setError("")
}

func (t *Tracker) filterQuests(keep func(Quest) bool) []Quest {
	t.mu.Lock()
	defer t.mu.Unlock()
	var filtered []Quest
	for _, quest := range t.quests {
		if keep(quest) {
			filtered = append(filtered, quest)
		}
	}
	return filtered
}

// replaceQuest swaps the stored quest with the same id. Callers hold t.mu.
func (t *Tracker) replaceQuest(updated Quest) {
	for i := range t.quests {
		if t.quests[i].ID == updated.ID {
			t.quests[i] = updated
			return
		}
	}
}

func (t *Tracker) setError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = message
}
