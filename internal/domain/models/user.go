// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender values stored on a user. Empty string means the user has not
// provided one yet; such users are excluded from team operations that
// require composition validation.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// User represents a registered faculty member.
//
// NOTE:
//   - TeamID is owned by the membership relation: it is set and cleared by
//     the roster engine together with the team's member list, never edited
//     directly through profile updates.
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username     string              `bson:"username" json:"username"`
	PasswordHash string              `bson:"password_hash" json:"-"`
	Name         string              `bson:"name" json:"name"`
	NameCI       string              `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string              `bson:"email" json:"email"`
	EmailCI      string              `bson:"email_ci" json:"-"`
	Designation  string              `bson:"designation" json:"designation"`
	Department   string              `bson:"department" json:"department"`
	Gender       string              `bson:"gender,omitempty" json:"gender,omitempty"` // "M" | "F" | ""
	Skills       string              `bson:"skills,omitempty" json:"skills,omitempty"`
	Experience   int                 `bson:"experience" json:"experience"`
	Bio          string              `bson:"bio,omitempty" json:"bio,omitempty"`
	AvatarURL    string              `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	TeamID       *primitive.ObjectID `bson:"team_id,omitempty" json:"team_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// OnTeam reports whether the user currently belongs to a team.
func (u User) OnTeam() bool {
	return u.TeamID != nil
}
