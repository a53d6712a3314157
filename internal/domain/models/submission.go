// internal/domain/models/submission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Submission statuses.
const (
	SubmissionSubmitted   = "submitted"
	SubmissionUnderReview = "under-review"
	SubmissionApproved    = "approved"
	SubmissionRejected    = "rejected"
)

// Submission is a team's entry for one hackathon track. A team submits at
// most once per track.
type Submission struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TeamID      primitive.ObjectID `bson:"team_id" json:"team_id"`
	TeamName    string             `bson:"team_name" json:"team_name"`
	TrackID     string             `bson:"track_id" json:"track_id"`
	TrackName   string             `bson:"track_name" json:"track_name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	SubmittedBy     primitive.ObjectID `bson:"submitted_by" json:"submitted_by"`
	SubmittedByName string             `bson:"submitted_by_name" json:"submitted_by_name"`
	Status          string             `bson:"status" json:"status"`

	Files []SubmissionFile `bson:"files,omitempty" json:"files,omitempty"`

	ReviewNotes string              `bson:"review_notes,omitempty" json:"review_notes,omitempty"`
	ReviewedBy  *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// SubmissionFile describes an uploaded attachment.
type SubmissionFile struct {
	Filename     string    `bson:"filename" json:"filename"`
	OriginalName string    `bson:"original_name" json:"original_name"`
	Path         string    `bson:"path" json:"path"`
	Size         int64     `bson:"size" json:"size"`
	MimeType     string    `bson:"mimetype" json:"mimetype"`
	UploadedAt   time.Time `bson:"uploaded_at" json:"uploaded_at"`
}

// Track is one of the fixed hackathon tracks teams submit against.
type Track struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tracks is the fixed track list, in display order.
var Tracks = []Track{
	{ID: "smart-campus", Name: "Smart & Sustainable Campus"},
	{ID: "ai-social-impact", Name: "AI & Data Science for Social Impact"},
	{ID: "edtech", Name: "Future of Engineering Education (EdTech)"},
	{ID: "healthcare", Name: "Healthcare Engineering"},
	{ID: "industry-4", Name: "Industry 4.0 & Automation"},
	{ID: "greentech", Name: "Climate Resilience & GreenTech"},
	{ID: "disaster-management", Name: "Disaster Management & Infrastructure"},
	{ID: "assistive-tech", Name: "Assistive Technologies for Disabilities"},
	{ID: "smart-cities", Name: "Smart Cities & Urban Mobility"},
	{ID: "open-innovation", Name: "Open Innovation"},
}

// TrackName resolves a track id to its display name. Unknown ids return
// ok=false.
func TrackName(id string) (string, bool) {
	for _, t := range Tracks {
		if t.ID == id {
			return t.Name, true
		}
	}
	return "", false
}
