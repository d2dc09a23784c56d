package model

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	StatusPending  ProjectStatus = "pending"
	StatusApproved ProjectStatus = "approved"
	StatusRejected ProjectStatus = "rejected"
)

// Statuses lists every status in display order.
var Statuses = []ProjectStatus{StatusPending, StatusApproved, StatusRejected}

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsDecision reports whether s is a status a review may move a project into.
func (s ProjectStatus) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

var ErrReviewInvariant = errors.New("review fields out of sync with status")

type Project struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;index:ix_projects_created_at_id,priority:2" json:"id"`
	Title        string    `gorm:"type:text;not null" json:"title"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	Category     string    `gorm:"type:text;not null;index:ix_projects_category" json:"category"`
	Technologies []string  `gorm:"-" json:"technologies"`
	Faculty      string    `gorm:"type:text;index:ix_projects_faculty" json:"faculty"`
	Department   string    `gorm:"type:text" json:"department"`
	Year         int       `gorm:"not null;index:ix_projects_year" json:"year"`

	GithubLink   string `gorm:"type:text" json:"github_link,omitempty"`
	LiveDemoLink string `gorm:"type:text" json:"live_demo_link,omitempty"`
	DocumentLink string `gorm:"type:text" json:"project_document,omitempty"`
	// DocumentKey is the object key of an uploaded document; DocumentLink is presigned from it on read.
	DocumentKey string `gorm:"type:text" json:"-"`

	Status         ProjectStatus `gorm:"type:text;not null;default:'pending';check:status IN ('pending','approved','rejected');index:ix_projects_status" json:"status"`
	ReviewComments *string       `gorm:"type:text" json:"review_comments"`
	ReviewerID     *uuid.UUID    `gorm:"type:uuid;index" json:"reviewer_id"`
	ReviewedAt     *time.Time    `json:"reviewed_at,omitempty"`
	SubmitterID    uuid.UUID     `gorm:"type:uuid;not null;index:ix_projects_submitter" json:"submitter_id"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;index:ix_projects_created_at_id,priority:1" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null" json:"updated_at"`

	Submitter   *User        `gorm:"foreignKey:SubmitterID;references:ID" json:"submitter,omitempty"`
	Reviewer    *User        `gorm:"foreignKey:ReviewerID;references:ID" json:"reviewer,omitempty"`
	TeamMembers []TeamMember `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"team_members,omitempty"`
	Comments    []Comment    `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"comments,omitempty"`

	// TechnologyRows stores Technologies, one row per tag.
	TechnologyRows []ProjectTechnology `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if len(p.TechnologyRows) == 0 {
		p.TechnologyRows = TechnologyRows(p.ID, p.Technologies)
	}
	return nil
}

// AfterFind rebuilds Technologies from the preloaded rows.
func (p *Project) AfterFind(tx *gorm.DB) error {
	rows := slices.Clone(p.TechnologyRows)
	slices.SortFunc(rows, func(a, b ProjectTechnology) int { return a.Position - b.Position })
	p.Technologies = make([]string, 0, len(rows))
	for _, r := range rows {
		p.Technologies = append(p.Technologies, r.Name)
	}
	return nil
}

// GetOwnerID returns the submitter.
func (p *Project) GetOwnerID() uuid.UUID { return p.SubmitterID }

// CheckReviewInvariant verifies pending <=> reviewer unset <=> review comments unset.
func (p *Project) CheckReviewInvariant() error {
	pending := p.Status == StatusPending
	if pending != (p.ReviewerID == nil) || pending != (p.ReviewComments == nil) {
		return ErrReviewInvariant
	}
	return nil
}

type ProjectTechnology struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position  int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"type:text;not null"`
}

func (ProjectTechnology) TableName() string { return "project_technologies" }

// TechnologyRows numbers names from 1 in the order given.
func TechnologyRows(projectID uuid.UUID, names []string) []ProjectTechnology {
	rows := make([]ProjectTechnology, 0, len(names))
	for i, n := range names {
		rows = append(rows, ProjectTechnology{ProjectID: projectID, Position: i + 1, Name: n})
	}
	return rows
}

type TeamMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	FullName  string    `gorm:"type:text;not null" json:"full_name"`
	Role      string    `gorm:"type:text" json:"role"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null" json:"created_at"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (TeamMember) TableName() string { return "team_members" }

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:ix_comments_project_created,priority:1" json:"project_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"comment"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;index:ix_comments_project_created,priority:2" json:"created_at"`

	Author  *User    `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Comment) TableName() string { return "comments" }

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
