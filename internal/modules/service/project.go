package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/infra/blob"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"github.com/ucu-innovators/hub/internal/modules/policy"
	"github.com/ucu-innovators/hub/internal/modules/repo"
	"github.com/ucu-innovators/hub/internal/pkg/paging"
	"github.com/ucu-innovators/hub/internal/telemetry"
	"go.uber.org/zap"
)

const maxListLimit = 100

// DocumentMIMEs lists the content types accepted for project documents.
var DocumentMIMEs = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/zip",
	"image/png",
	"image/jpeg",
}

type ProjectService interface {
	Submit(ctx context.Context, p *policy.Principal, in SubmitProjectInput) (*model.Project, error)
	Get(ctx context.Context, p *policy.Principal, id uuid.UUID) (*model.Project, error)
	List(ctx context.Context, p *policy.Principal, in ListProjectsInput) (*ListProjectsOutput, error)
	Update(ctx context.Context, p *policy.Principal, id uuid.UUID, in UpdateProjectInput) (*model.Project, error)
	Review(ctx context.Context, p *policy.Principal, id uuid.UUID, in ReviewInput) (*model.Project, error)
	AddComment(ctx context.Context, p *policy.Principal, id uuid.UUID, text string) (*model.Comment, error)
	AddTeamMember(ctx context.Context, p *policy.Principal, id uuid.UUID, in TeamMemberInput) (*model.TeamMember, error)
	UploadDocument(ctx context.Context, p *policy.Principal, id uuid.UUID, fh *multipart.FileHeader) (*model.Project, error)
	// DocumentURL resolves the project's document to a fetchable URL. Uploaded
	// documents get a fresh presigned link on every call.
	DocumentURL(ctx context.Context, p *policy.Principal, id uuid.UUID) (string, error)
}

// DocumentRoute is the stable link reported for uploaded documents; it
// redirects to a short-lived presigned URL.
const DocumentRoute = "/api/v1/projects/%s/document"

type ProjectServiceDeps struct {
	Projects repo.ProjectRepo
	Users    repo.UserRepo
	Gate     *policy.Gate
	Docs     DocumentStore
	// PresignExpire bounds how long document links returned by Get stay valid.
	PresignExpire time.Duration
	Publisher     EventPublisher
	Exchange      string
	RoutingKeys   map[string]string
	Invalidator   Invalidator
	Log           *zap.Logger
	Now           func() time.Time
}

type projectService struct {
	projects      repo.ProjectRepo
	users         repo.UserRepo
	gate          *policy.Gate
	docs          DocumentStore
	presignExpire time.Duration
	events        *eventSink
	validate      *validator.Validate
	log           *zap.Logger
	now           func() time.Time
}

func NewProjectService(d ProjectServiceDeps) ProjectService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.PresignExpire <= 0 {
		d.PresignExpire = 15 * time.Minute
	}
	return &projectService{
		projects:      d.Projects,
		users:         d.Users,
		gate:          d.Gate,
		docs:          d.Docs,
		presignExpire: d.PresignExpire,
		events: &eventSink{
			pub:         d.Publisher,
			exchange:    d.Exchange,
			routingKeys: d.RoutingKeys,
			invalidator: d.Invalidator,
			log:         d.Log,
		},
		validate: newValidator(),
		log:      d.Log,
		now:      d.Now,
	}
}

type TeamMemberInput struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Role     string `json:"role" validate:"max=80"`
}

type SubmitProjectInput struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Description  string            `json:"description" validate:"required,max=10000"`
	Category     string            `json:"category" validate:"required,max=100"`
	Technologies []string          `json:"technologies" validate:"required,min=1,max=30,dive,required,max=60"`
	Faculty      string            `json:"faculty" validate:"max=200"`
	Department   string            `json:"department" validate:"max=200"`
	Year         int               `json:"year" validate:"omitempty,min=1900,max=2200"`
	GithubLink   string            `json:"github_link" validate:"omitempty,http_url,max=500"`
	LiveDemoLink string            `json:"live_demo_link" validate:"omitempty,http_url,max=500"`
	DocumentLink string            `json:"project_document" validate:"omitempty,http_url,max=500"`
	TeamMembers  []TeamMemberInput `json:"team_members" validate:"max=20,dive"`
	// Status is accepted for compatibility and ignored: new projects are always pending.
	Status string `json:"status"`
}

func (in *SubmitProjectInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Faculty = strings.TrimSpace(in.Faculty)
	in.Department = strings.TrimSpace(in.Department)
	in.GithubLink = strings.TrimSpace(in.GithubLink)
	in.LiveDemoLink = strings.TrimSpace(in.LiveDemoLink)
	in.DocumentLink = strings.TrimSpace(in.DocumentLink)
	in.Technologies = normalizeTechnologies(in.Technologies)
	for i := range in.TeamMembers {
		in.TeamMembers[i].FullName = strings.TrimSpace(in.TeamMembers[i].FullName)
		in.TeamMembers[i].Role = strings.TrimSpace(in.TeamMembers[i].Role)
	}
}

// normalizeTechnologies splits comma separated entries, trims them and drops
// blanks and case-insensitive duplicates, keeping first-seen order.
func normalizeTechnologies(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, raw := range in {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			key := strings.ToLower(t)
			if t == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}

func (s *projectService) Submit(ctx context.Context, p *policy.Principal, in SubmitProjectInput) (*model.Project, error) {
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionSubmitProject, nil)); err != nil {
		return nil, err
	}
	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, validationFrom(err)
	}

	submitter, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		err = fromRepo(err, "user")
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: submitter no longer exists", ErrForbidden)
		}
		return nil, err
	}

	proj := &model.Project{
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Technologies: in.Technologies,
		Faculty:      in.Faculty,
		Department:   in.Department,
		Year:         in.Year,
		GithubLink:   in.GithubLink,
		LiveDemoLink: in.LiveDemoLink,
		DocumentLink: in.DocumentLink,
		Status:       model.StatusPending,
		SubmitterID:  submitter.ID,
		CreatedAt:    s.now().UTC(),
	}
	if proj.Year == 0 {
		proj.Year = s.now().Year()
	}
	if proj.Faculty == "" {
		proj.Faculty = submitter.Faculty
	}
	if proj.Department == "" {
		proj.Department = submitter.Department
	}
	for _, m := range in.TeamMembers {
		proj.TeamMembers = append(proj.TeamMembers, model.TeamMember{FullName: m.FullName, Role: m.Role})
	}

	if err := s.projects.Create(ctx, proj); err != nil {
		return nil, fromRepo(err, "project")
	}
	s.checkReviewInvariant(proj)

	telemetry.RecordSubmission(ctx, proj.Category)
	s.events.changed(ctx, ProjectEvent{
		Type:       EventProjectSubmitted,
		ProjectID:  proj.ID,
		ActorID:    p.ID,
		OwnerID:    proj.SubmitterID,
		Title:      proj.Title,
		Status:     proj.Status,
		OccurredAt: proj.CreatedAt,
	})
	return s.load(ctx, proj.ID)
}

func (s *projectService) Get(ctx context.Context, p *policy.Principal, id uuid.UUID) (*model.Project, error) {
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionViewProject, nil)); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// load reads a project with its associations. An uploaded document is
// reported by its stable route, never by a presigned URL.
func (s *projectService) load(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	s.checkReviewInvariant(proj)
	withDocumentRoute(proj)
	return proj, nil
}

// withDocumentRoute points uploaded documents at the redirect route.
func withDocumentRoute(p *model.Project) {
	if p.DocumentKey != "" {
		p.DocumentLink = fmt.Sprintf(DocumentRoute, p.ID)
	}
}

func (s *projectService) DocumentURL(ctx context.Context, p *policy.Principal, id uuid.UUID) (string, error) {
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionViewProject, nil)); err != nil {
		return "", err
	}
	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		return "", fromRepo(err, "project")
	}
	switch {
	case proj.DocumentKey != "":
		if s.docs == nil {
			return "", fmt.Errorf("%w: document storage is not configured", ErrUnavailable)
		}
		url, err := s.docs.PresignGet(ctx, proj.DocumentKey, s.presignExpire)
		if err != nil {
			s.log.Warn("presign project document", zap.String("project_id", id.String()), zap.Error(err))
			return "", fmt.Errorf("%w: presign document: %v", ErrUnavailable, err)
		}
		return url, nil
	case proj.DocumentLink != "":
		return proj.DocumentLink, nil
	default:
		return "", fmt.Errorf("%w: project has no document", ErrNotFound)
	}
}

// checkReviewInvariant panics in development builds when review fields and
// status disagree; production logs and carries on.
func (s *projectService) checkReviewInvariant(p *model.Project) {
	if err := p.CheckReviewInvariant(); err != nil {
		s.log.DPanic("project review invariant violated",
			zap.String("project_id", p.ID.String()),
			zap.String("status", string(p.Status)),
			zap.Bool("has_reviewer", p.ReviewerID != nil),
			zap.Bool("has_comments", p.ReviewComments != nil),
			zap.Error(err))
	}
}

type ListProjectsInput struct {
	Status     string `form:"status" json:"status"`
	Search     string `form:"search" json:"search"`
	Faculty    string `form:"faculty" json:"faculty"`
	Category   string `form:"category" json:"category"`
	Technology string `form:"technology" json:"technology"`
	Year       int    `form:"year" json:"year"`
	Mine       bool   `form:"mine" json:"mine"`
	Limit      int    `form:"limit" json:"limit"`
	Cursor     string `form:"cursor" json:"cursor"`
}

type ListProjectsOutput struct {
	Items      []model.Project `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

// List applies no implicit status filter: omitting status returns every status.
func (s *projectService) List(ctx context.Context, p *policy.Principal, in ListProjectsInput) (*ListProjectsOutput, error) {
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionListProjects, nil)); err != nil {
		return nil, err
	}
	if in.Limit < 0 {
		return nil, validationErr("limit must not be negative")
	}
	if in.Limit > maxListLimit {
		in.Limit = maxListLimit
	}

	status := model.ProjectStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if status != "" && !status.Valid() {
		// an unknown status cannot match anything
		return &ListProjectsOutput{Items: []model.Project{}}, nil
	}

	filter := repo.ProjectFilter{
		Status:     status,
		Search:     in.Search,
		Faculty:    in.Faculty,
		Category:   in.Category,
		Technology: in.Technology,
		Year:       in.Year,
	}
	if in.Mine {
		if !p.Authenticated() {
			return nil, fmt.Errorf("%w: sign in to list your own projects", ErrForbidden)
		}
		filter.SubmitterID = p.ID
	}

	var afterT time.Time
	var afterID uuid.UUID
	if in.Cursor != "" {
		var err error
		afterT, afterID, err = paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, validationErr("invalid cursor")
		}
	}

	fetch := 0
	if in.Limit > 0 {
		// one extra row tells us whether another page exists
		fetch = in.Limit + 1
	}
	items, err := s.projects.List(ctx, filter, afterT, afterID, fetch)
	if err != nil {
		return nil, fromRepo(err, "projects")
	}
	if items == nil {
		items = []model.Project{}
	}
	for i := range items {
		withDocumentRoute(&items[i])
	}

	out := &ListProjectsOutput{Items: items}
	if in.Limit > 0 && len(items) > in.Limit {
		out.HasMore = true
		out.Items = items[:in.Limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

type UpdateProjectInput struct {
	Title        *string   `json:"title" validate:"omitempty,max=200"`
	Description  *string   `json:"description" validate:"omitempty,max=10000"`
	Category     *string   `json:"category" validate:"omitempty,max=100"`
	Technologies *[]string `json:"technologies" validate:"omitempty,max=30,dive,required,max=60"`
	Faculty      *string   `json:"faculty" validate:"omitempty,max=200"`
	Department   *string   `json:"department" validate:"omitempty,max=200"`
	Year         *int      `json:"year" validate:"omitempty,min=1900,max=2200"`
	GithubLink   *string   `json:"github_link" validate:"omitempty,max=500"`
	LiveDemoLink *string   `json:"live_demo_link" validate:"omitempty,max=500"`
	// DocumentLink replaces any uploaded document; an empty string clears both.
	DocumentLink *string   `json:"project_document" validate:"omitempty,max=500"`
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func (in *UpdateProjectInput) normalize() error {
	in.Title = trimPtr(in.Title)
	in.Description = trimPtr(in.Description)
	in.Category = trimPtr(in.Category)
	in.Faculty = trimPtr(in.Faculty)
	in.Department = trimPtr(in.Department)
	in.GithubLink = trimPtr(in.GithubLink)
	in.LiveDemoLink = trimPtr(in.LiveDemoLink)
	in.DocumentLink = trimPtr(in.DocumentLink)

	required := []struct {
		name string
		v    *string
	}{
		{"title", in.Title},
		{"description", in.Description},
		{"category", in.Category},
	}
	for _, f := range required {
		if f.v != nil && *f.v == "" {
			return validationErr("%s must not be empty", f.name)
		}
	}
	if in.Technologies != nil {
		techs := normalizeTechnologies(*in.Technologies)
		if len(techs) == 0 {
			return validationErr("technologies must not be empty")
		}
		in.Technologies = &techs
	}
	links := []struct {
		name string
		v    *string
	}{
		{"github_link", in.GithubLink},
		{"live_demo_link", in.LiveDemoLink},
		{"project_document", in.DocumentLink},
	}
	for _, f := range links {
		if f.v != nil && *f.v != "" && !isHTTPURL(*f.v) {
			return validationErr("%s must be an absolute http(s) URL", f.name)
		}
	}
	return nil
}

func (s *projectService) Update(ctx context.Context, p *policy.Principal, id uuid.UUID, in UpdateProjectInput) (*model.Project, error) {
	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionEditProject, proj)); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationFrom(err)
	}

	upd := repo.ProjectUpdate{
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Technologies: in.Technologies,
		Faculty:      in.Faculty,
		Department:   in.Department,
		Year:         in.Year,
		GithubLink:   in.GithubLink,
		LiveDemoLink: in.LiveDemoLink,
		DocumentLink: in.DocumentLink,
	}
	if in.DocumentLink != nil {
		noKey := ""
		upd.DocumentKey = &noKey
	}
	ok, err := s.projects.UpdatePending(ctx, id, upd)
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	if !ok {
		// reviewed between our read and the write
		return nil, fmt.Errorf("%w: project is no longer pending", ErrConflict)
	}
	s.events.changed(ctx, ProjectEvent{
		Type:       EventProjectUpdated,
		ProjectID:  id,
		ActorID:    p.ID,
		OwnerID:    proj.SubmitterID,
		Title:      proj.Title,
		Status:     model.StatusPending,
		OccurredAt: s.now().UTC(),
	})
	return s.load(ctx, id)
}

type ReviewInput struct {
	Status   string `json:"status"`
	Comments string `json:"comments"`
}

// Review moves a pending project to approved or rejected exactly once.
func (s *projectService) Review(ctx context.Context, p *policy.Principal, id uuid.UUID, in ReviewInput) (*model.Project, error) {
	decision := model.ProjectStatus(strings.ToLower(strings.TrimSpace(in.Status)))

	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionReviewProject, proj)); err != nil {
		if errors.Is(err, ErrConflict) && decision.IsDecision() {
			telemetry.RecordReview(ctx, string(decision), "conflict")
		}
		return nil, err
	}
	if !decision.IsDecision() {
		return nil, validationErr("status must be approved or rejected")
	}

	at := s.now().UTC()
	applied, err := s.projects.Review(ctx, id, repo.ReviewUpdate{
		Decision:   decision,
		ReviewerID: p.ID,
		Comments:   strings.TrimSpace(in.Comments),
		At:         at,
	})
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	if !applied {
		exists, err := s.projects.Exists(ctx, id)
		if err != nil {
			return nil, fromRepo(err, "project")
		}
		if !exists {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		telemetry.RecordReview(ctx, string(decision), "conflict")
		return nil, fmt.Errorf("%w: project was already reviewed", ErrConflict)
	}

	telemetry.RecordReview(ctx, string(decision), "applied")
	s.events.changed(ctx, ProjectEvent{
		Type:       EventProjectReviewed,
		ProjectID:  id,
		ActorID:    p.ID,
		OwnerID:    proj.SubmitterID,
		Title:      proj.Title,
		Status:     decision,
		Comment:    strings.TrimSpace(in.Comments),
		OccurredAt: at,
	})
	return s.load(ctx, id)
}

// AddComment appends to a project of any status.
func (s *projectService) AddComment(ctx context.Context, p *policy.Principal, id uuid.UUID, text string) (*model.Comment, error) {
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionPostComment, nil)); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationErr("comment must not be empty")
	}
	if len(text) > 5000 {
		return nil, validationErr("comment is too long")
	}

	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "project")
	}

	c := &model.Comment{
		ProjectID: id,
		AuthorID:  p.ID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.projects.AppendComment(ctx, c); err != nil {
		return nil, fromRepo(err, "comment")
	}
	if author, err := s.users.GetByID(ctx, p.ID); err == nil {
		c.Author = &model.User{ID: author.ID, FullName: author.FullName, Role: author.Role}
	}

	telemetry.RecordComment(ctx)
	s.events.changed(ctx, ProjectEvent{
		Type:       EventCommentPosted,
		ProjectID:  id,
		ActorID:    p.ID,
		OwnerID:    proj.SubmitterID,
		Title:      proj.Title,
		Status:     proj.Status,
		Comment:    text,
		OccurredAt: c.CreatedAt,
	})
	return c, nil
}

func (s *projectService) AddTeamMember(ctx context.Context, p *policy.Principal, id uuid.UUID, in TeamMemberInput) (*model.TeamMember, error) {
	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionEditProject, proj)); err != nil {
		return nil, err
	}
	in.FullName = strings.TrimSpace(in.FullName)
	in.Role = strings.TrimSpace(in.Role)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationFrom(err)
	}

	m := &model.TeamMember{ProjectID: id, FullName: in.FullName, Role: in.Role, CreatedAt: s.now().UTC()}
	if err := s.projects.AddTeamMember(ctx, m); err != nil {
		return nil, fromRepo(err, "team member")
	}
	return m, nil
}

func (s *projectService) UploadDocument(ctx context.Context, p *policy.Principal, id uuid.UUID, fh *multipart.FileHeader) (*model.Project, error) {
	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionEditProject, proj)); err != nil {
		return nil, err
	}
	if s.docs == nil {
		return nil, fmt.Errorf("%w: document storage is not configured", ErrUnavailable)
	}
	if fh == nil || fh.Size == 0 {
		return nil, validationErr("document file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, validationErr("cannot read upload: %v", err)
	}
	mime, err := blob.DetectMIME(f)
	_ = f.Close()
	if err != nil {
		return nil, validationErr("cannot detect document type")
	}
	if !slices.Contains(DocumentMIMEs, baseMIME(mime)) {
		return nil, validationErr("document type %s is not allowed", mime)
	}

	meta, err := s.docs.UploadFormFile(ctx, "projects/"+id.String(), fh)
	if err != nil {
		if errors.Is(err, blob.ErrTooLarge) {
			return nil, validationErr("document is too large")
		}
		return nil, fmt.Errorf("%w: upload document: %v", ErrUnavailable, err)
	}

	key, noLink := meta.S3Key, ""
	ok, err := s.projects.UpdatePending(ctx, id, repo.ProjectUpdate{DocumentKey: &key, DocumentLink: &noLink})
	if err != nil {
		return nil, fromRepo(err, "project")
	}
	if !ok {
		return nil, fmt.Errorf("%w: project is no longer pending", ErrConflict)
	}
	s.log.Info("project document uploaded",
		zap.String("project_id", id.String()),
		zap.String("key", key),
		zap.String("mime", meta.MIME),
		zap.Int64("size", meta.SizeB))
	return s.load(ctx, id)
}

func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}
