package auth

import "time"

// ConsciousnessLevel is the platform's coarse progression enum, ordered from
// AWAKENING to MASTERING.
type ConsciousnessLevel string

const (
	LevelAwakening   ConsciousnessLevel = "AWAKENING"
	LevelExpanding   ConsciousnessLevel = "EXPANDING"
	LevelIntegrating ConsciousnessLevel = "INTEGRATING"
	LevelEmbodying   ConsciousnessLevel = "EMBODYING"
	LevelMastering   ConsciousnessLevel = "MASTERING"
)

// Levels returns all consciousness levels in ascending order.
func Levels() []ConsciousnessLevel {
	return []ConsciousnessLevel{
		LevelAwakening,
		LevelExpanding,
		LevelIntegrating,
		LevelEmbodying,
		LevelMastering,
	}
}

// Next returns the level above l, or false when l is already the highest
// (or unknown).
func (l ConsciousnessLevel) Next() (ConsciousnessLevel, bool) {
	levels := Levels()
	for i, level := range levels[:len(levels)-1] {
		if level == l {
			return levels[i+1], true
		}
	}
	return l, false
}

// GeneKey is one of the 64 gene keys with its line and aspect texts.
type GeneKey struct {
	KeyNumber    int    `json:"keyNumber"` // 1-64
	Line         int    `json:"line"`      // 1-6
	ShadowAspect string `json:"shadowAspect,omitempty"`
	GiftAspect   string `json:"giftAspect,omitempty"`
	SiddhiAspect string `json:"siddhiAspect,omitempty"`
	CodonRing    int    `json:"codonRing,omitempty"` // 1-22
}

// ActivationSequence holds the four primary gene keys of a profile.
type ActivationSequence struct {
	Sun       GeneKey `json:"sun"`
	Earth     GeneKey `json:"earth"`
	NorthNode GeneKey `json:"northNode"`
	SouthNode GeneKey `json:"southNode"`
}

type GeneKeysProfile struct {
	ActivationSequence    ActivationSequence `json:"activationSequence"`
	CurrentEvolutionPhase string             `json:"currentEvolutionPhase,omitempty"` // SHADOW, GIFT or SIDDHI
}

// User is the platform identity and profile record. It is owned by the
// session manager and always kept in lockstep with the token pair.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Avatar    string `json:"avatar,omitempty"`

	ConsciousnessLevel ConsciousnessLevel `json:"consciousnessLevel,omitempty"`
	GeneKeysProfile    *GeneKeysProfile   `json:"geneKeysProfile,omitempty"`
	SacredIntentions   []string           `json:"sacredIntentions,omitempty"`
	PersonalVision     string             `json:"personalVision,omitempty"`

	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
	LastActiveAt time.Time `json:"lastActiveAt,omitempty"`
}

// HasGeneKeysProfile reports whether the user completed gene keys onboarding.
func (u *User) HasGeneKeysProfile() bool {
	return u != nil && u.GeneKeysProfile != nil
}

type LoginCredentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

type RegisterData struct {
	Username            string `json:"username"`
	Email               string `json:"email"`
	Password            string `json:"password"`
	FirstName           string `json:"firstName,omitempty"`
	LastName            string `json:"lastName,omitempty"`
	AcceptTerms         bool   `json:"acceptTerms"`
	AcceptPrivacyPolicy bool   `json:"acceptPrivacyPolicy"`

	// Optional onboarding fields.
	InitialConsciousnessLevel ConsciousnessLevel `json:"initialConsciousnessLevel,omitempty"`
	SacredIntentions          []string           `json:"sacredIntentions,omitempty"`
	PersonalVision            string             `json:"personalVision,omitempty"`
}

// ProfileUpdate carries a partial profile change. Nil fields are not sent,
// so the server only sees what actually changed.
type ProfileUpdate struct {
	FirstName        *string          `json:"firstName,omitempty"`
	LastName         *string          `json:"lastName,omitempty"`
	Avatar           *string          `json:"avatar,omitempty"`
	PersonalVision   *string          `json:"personalVision,omitempty"`
	SacredIntentions []string         `json:"sacredIntentions,omitempty"`
	GeneKeysProfile  *GeneKeysProfile `json:"geneKeysProfile,omitempty"`
}

// AuthResponse is the success shape of /auth/login and /auth/register.
type AuthResponse struct {
	User    *User       `json:"user"`
	Tokens  *AuthTokens `json:"tokens"`
	Message string      `json:"message,omitempty"`
}
