package contributing

import "time"

// QuestType classifies what a quest contributes to.
type QuestType string

const (
	QuestTypePlatform   QuestType = "PLATFORM_QUEST"
	QuestTypeCommunity  QuestType = "COMMUNITY_QUEST"
	QuestTypeBusiness   QuestType = "BUSINESS_QUEST"
	QuestTypeLeadership QuestType = "LEADERSHIP_QUEST"
)

// BusinessTrack is the specialization a quest counts toward.
type BusinessTrack string

const (
	TrackTechDeveloper     BusinessTrack = "TECH_DEVELOPER"
	TrackUXDesigner        BusinessTrack = "UX_DESIGNER"
	TrackCommunityBuilder  BusinessTrack = "COMMUNITY_BUILDER"
	TrackBusinessDeveloper BusinessTrack = "BUSINESS_DEVELOPER"
	TrackDataScientist     BusinessTrack = "DATA_SCIENTIST"
	TrackContentCreator    BusinessTrack = "CONTENT_CREATOR"
	TrackQASpecialist      BusinessTrack = "QA_SPECIALIST"
)

// ContributionStatus is the lifecycle state of a quest.
type ContributionStatus string

const (
	StatusProposed   ContributionStatus = "PROPOSED"
	StatusInProgress ContributionStatus = "IN_PROGRESS"
	StatusCompleted  ContributionStatus = "COMPLETED"
	StatusCancelled  ContributionStatus = "CANCELLED"
)

// Quest is a unit of gamified contribution, optionally linked to a GitHub
// issue or pull request.
type Quest struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	QuestType        QuestType          `json:"questType"`
	BusinessTrack    BusinessTrack      `json:"businessTrack"`
	Status           ContributionStatus `json:"status"`
	DifficultyLevel  int                `json:"difficultyLevel"`
	ExperiencePoints int                `json:"experiencePoints"`
	EstimatedHours   float64            `json:"estimatedHours"`
	UserID           string             `json:"userId"`

	GitHubRepository     string `json:"githubRepository,omitempty"`
	GitHubIssueNumber    int    `json:"githubIssueNumber,omitempty"`
	GitHubURL            string `json:"githubUrl,omitempty"`
	GitHubCommitHash     string `json:"githubCommitHash,omitempty"`
	GitHubPullRequestURL string `json:"githubPullRequestUrl,omitempty"`
	LinkedToGitHub       bool   `json:"isLinkedToGitHub"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ActualHours float64    `json:"actualHours,omitempty"`
}

// SCLProgress is a user's position in the contribution level ladder,
// as reported by the server. The client never recomputes these numbers.
type SCLProgress struct {
	CurrentSCLLevel         int     `json:"currentSCLLevel"`
	CurrentSCLName          string  `json:"currentSCLName"`
	CurrentSCLDescription   string  `json:"currentSCLDescription"`
	CurrentExperiencePoints int     `json:"currentExperiencePoints"`
	NextLevelRequiredXP     int     `json:"nextLevelRequiredXP"`
	ProgressToNextLevel     float64 `json:"progressToNextLevel"`

	TotalQuestsCompleted     int `json:"totalQuestsCompleted"`
	QuestsCompletedThisMonth int `json:"questsCompletedThisMonth"`

	PrimaryBusinessTrack BusinessTrack         `json:"primaryBusinessTrack"`
	TrackLevels          map[BusinessTrack]int `json:"trackLevels"`
	TrackXP              map[BusinessTrack]int `json:"trackXP"`

	CompletedSkills       []string `json:"completedSkills"`
	RecommendedNextSkills []string `json:"recommendedNextSkills"`

	ConsciousnessGrowthRate     float64  `json:"consciousnessGrowthRate"`
	ConsciousnessEvolutionTrend string   `json:"consciousnessEvolutionTrend"`
	NextLevelRequirements       []string `json:"nextLevelRequirements"`
	QuestsRequiredForNextLevel  int      `json:"questsRequiredForNextLevel"`
}

// GitHubIssue is the shape of an issue offered for quest creation.
type GitHubIssue struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Repository     string    `json:"repository"`
	IssueNumber    int       `json:"issueNumber"`
	GitHubURL      string    `json:"githubUrl"`
	Labels         []string  `json:"labels"`
	Assignees      []string  `json:"assignees"`
	State          string    `json:"state"`
	Difficulty     string    `json:"difficulty,omitempty"`
	EstimatedHours float64   `json:"estimatedHours,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ContributionRequest records a contribution made outside the quest flow.
type ContributionRequest struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	QuestType       QuestType     `json:"questType"`
	BusinessTrack   BusinessTrack `json:"businessTrack"`
	DifficultyLevel int           `json:"difficultyLevel"`
	EstimatedHours  float64       `json:"estimatedHours"`

	GitHubRepository     string `json:"githubRepository,omitempty"`
	GitHubIssueNumber    int    `json:"githubIssueNumber,omitempty"`
	GitHubURL            string `json:"githubUrl,omitempty"`
	GitHubCommitHash     string `json:"githubCommitHash,omitempty"`
	GitHubPullRequestURL string `json:"githubPullRequestUrl,omitempty"`
}

// GitHubSyncResult summarizes a server-side issue sync run.
type GitHubSyncResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	QuestsCreated int      `json:"questsCreated"`
	QuestsUpdated int      `json:"questsUpdated"`
	Errors        []string `json:"errors"`
}

// HealthStatus is the contributing API health probe response.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
