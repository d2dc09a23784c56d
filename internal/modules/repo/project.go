package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"gorm.io/gorm"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project) error
	Get(ctx context.Context, id uuid.UUID) (*model.Project, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, f ProjectFilter, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]model.Project, error)
	UpdatePending(ctx context.Context, id uuid.UUID, in ProjectUpdate) (bool, error)
	Review(ctx context.Context, id uuid.UUID, in ReviewUpdate) (bool, error)
	AppendComment(ctx context.Context, c *model.Comment) error
	AddTeamMember(ctx context.Context, m *model.TeamMember) error
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// ProjectFilter narrows a listing. Zero values mean "no constraint";
// every non-zero field is ANDed with the others.
type ProjectFilter struct {
	Status      model.ProjectStatus
	Search      string
	Faculty     string
	Category    string
	Technology  string
	Year        int
	SubmitterID uuid.UUID
}

// ProjectUpdate holds the owner-editable fields. Nil pointers leave the column untouched.
type ProjectUpdate struct {
	Title        *string
	Description  *string
	Category     *string
	Technologies *[]string
	Faculty      *string
	Department   *string
	Year         *int
	GithubLink   *string
	LiveDemoLink *string
	DocumentLink *string
	DocumentKey  *string
}

func (u ProjectUpdate) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	set("title", u.Title)
	set("description", u.Description)
	set("category", u.Category)
	set("faculty", u.Faculty)
	set("department", u.Department)
	set("github_link", u.GithubLink)
	set("live_demo_link", u.LiveDemoLink)
	set("document_link", u.DocumentLink)
	set("document_key", u.DocumentKey)
	if u.Year != nil {
		cols["year"] = *u.Year
	}
	return cols
}

type ReviewUpdate struct {
	Decision   model.ProjectStatus
	ReviewerID uuid.UUID
	Comments   string
	At         time.Time
}

// Snapshot is a consistent read of every project and its submitters.
type Snapshot struct {
	Projects   []model.Project
	Submitters []model.User
	TakenAt    time.Time
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

func selectUserSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "full_name", "role", "faculty", "department", "created_at")
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *projectRepo) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).
		Preload("TechnologyRows", byPosition).
		Preload("Submitter", selectUserSummary).
		Preload("Reviewer", selectUserSummary).
		Preload("TeamMembers", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Comments.Author", selectUserSummary).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Project{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// likeEscaper makes user input literal inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

func applyProjectFilter(q *gorm.DB, f ProjectFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("projects.status = ?", f.Status)
	}
	if strings.TrimSpace(f.Search) != "" {
		p := containsPattern(f.Search)
		q = q.Where(`(LOWER(projects.title) LIKE ? ESCAPE '\' OR LOWER(projects.description) LIKE ? ESCAPE '\')`, p, p)
	}
	if strings.TrimSpace(f.Faculty) != "" {
		q = q.Where(`LOWER(projects.faculty) LIKE ? ESCAPE '\'`, containsPattern(f.Faculty))
	}
	if strings.TrimSpace(f.Category) != "" {
		q = q.Where(`LOWER(projects.category) LIKE ? ESCAPE '\'`, containsPattern(f.Category))
	}
	if strings.TrimSpace(f.Technology) != "" {
		q = q.Where(`EXISTS (SELECT 1 FROM project_technologies pt WHERE pt.project_id = projects.id AND LOWER(pt.name) LIKE ? ESCAPE '\')`,
			containsPattern(f.Technology))
	}
	if f.Year != 0 {
		q = q.Where("projects.year = ?", f.Year)
	}
	if f.SubmitterID != uuid.Nil {
		q = q.Where("projects.submitter_id = ?", f.SubmitterID)
	}
	return q
}

// List returns matching projects newest first, ties broken by id descending.
// A limit <= 0 returns every match.
func (r *projectRepo) List(ctx context.Context, f ProjectFilter, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]model.Project, error) {
	q := applyProjectFilter(r.db.WithContext(ctx).Model(&model.Project{}), f)

	if !afterCreatedAt.IsZero() && afterID != uuid.Nil {
		q = q.Where(
			"(projects.created_at < ?) OR (projects.created_at = ? AND projects.id < ?)",
			afterCreatedAt, afterCreatedAt, afterID,
		)
	}

	q = q.Preload("TechnologyRows", byPosition).
		Preload("Submitter", selectUserSummary).
		Order("projects.created_at DESC, projects.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var projects []model.Project
	return projects, q.Find(&projects).Error
}

// UpdatePending applies in only while the project is still pending.
// It reports false when no pending project with that id exists.
// Technologies, when set, replace the stored rows in the same transaction.
func (r *projectRepo) UpdatePending(ctx context.Context, id uuid.UUID, in ProjectUpdate) (bool, error) {
	cols := in.columns()
	cols["updated_at"] = time.Now().UTC()

	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Project{}).
			Where("id = ? AND status = ?", id, model.StatusPending).
			Updates(cols)
		if res.Error != nil || res.RowsAffected != 1 {
			return res.Error
		}
		applied = true
		if in.Technologies == nil {
			return nil
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.ProjectTechnology{}).Error; err != nil {
			return err
		}
		rows := model.TechnologyRows(id, *in.Technologies)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Review moves a pending project to its decision in a single compare-and-swap
// on status. Exactly one of several concurrent callers observes true.
func (r *projectRepo) Review(ctx context.Context, id uuid.UUID, in ReviewUpdate) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":          in.Decision,
			"reviewer_id":     in.ReviewerID,
			"review_comments": in.Comments,
			"reviewed_at":     in.At,
			"updated_at":      in.At,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *projectRepo) AppendComment(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *projectRepo) AddTeamMember(ctx context.Context, m *model.TeamMember) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// Snapshot reads all projects and their submitters inside one read transaction.
func (r *projectRepo) Snapshot(ctx context.Context) (*Snapshot, error) {
	var opts *sql.TxOptions
	if r.db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	snap := &Snapshot{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("TechnologyRows", byPosition).Order("created_at DESC, id DESC").Find(&snap.Projects).Error; err != nil {
			return err
		}
		seen := make(map[uuid.UUID]struct{}, len(snap.Projects))
		ids := make([]uuid.UUID, 0, len(snap.Projects))
		for _, p := range snap.Projects {
			if _, ok := seen[p.SubmitterID]; ok {
				continue
			}
			seen[p.SubmitterID] = struct{}{}
			ids = append(ids, p.SubmitterID)
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("id IN ?", ids).Find(&snap.Submitters).Error
	}, opts)
	if err != nil {
		return nil, err
	}
	snap.TakenAt = time.Now().UTC()
	return snap, nil
}
