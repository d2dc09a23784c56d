// Package analytics derives read-only summaries from a snapshot of the project store.
// Nothing here touches storage or checks permissions.
package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/modules/model"
)

// UnknownFaculty buckets projects whose faculty is empty.
const UnknownFaculty = "Unknown"

type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

type ApprovalRate struct {
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}

type Innovator struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	ProjectCount int       `json:"project_count"`
}

type RecentProject struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Status        model.ProjectStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	SubmitterName string              `json:"submitter_name"`
}

type Summary struct {
	Total              int             `json:"total"`
	ProjectsByStatus   []Count         `json:"projects_by_status"`
	ProjectsByFaculty  []Count         `json:"projects_by_faculty"`
	ProjectsByCategory []Count         `json:"projects_by_category"`
	ProjectsByYear     []YearCount     `json:"projects_by_year"`
	ApprovalRate       ApprovalRate    `json:"approval_rate"`
	ActiveInnovators   []Innovator     `json:"active_innovators"`
	RecentProjects     []RecentProject `json:"recent_projects"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

type Options struct {
	TopN    int
	RecentN int
}

// Aggregate computes every summary from one snapshot. projects may arrive in
// any order; submitters supplies display names and registration times.
func Aggregate(projects []model.Project, submitters []model.User, opts Options, now time.Time) *Summary {
	s := &Summary{
		Total:       len(projects),
		GeneratedAt: now,
	}

	byStatus := map[model.ProjectStatus]int{}
	byFaculty := map[string]int{}
	byCategory := map[string]int{}
	byYear := map[int]int{}
	perSubmitter := map[uuid.UUID]int{}

	for _, p := range projects {
		byStatus[p.Status]++
		faculty := strings.TrimSpace(p.Faculty)
		if faculty == "" {
			faculty = UnknownFaculty
		}
		byFaculty[faculty]++
		byCategory[p.Category]++
		byYear[p.Year]++
		perSubmitter[p.SubmitterID]++
	}

	s.ApprovalRate = ApprovalRate{
		Approved: byStatus[model.StatusApproved],
		Pending:  byStatus[model.StatusPending],
		Rejected: byStatus[model.StatusRejected],
	}
	s.ProjectsByStatus = make([]Count, 0, len(model.Statuses))
	for _, st := range model.Statuses {
		s.ProjectsByStatus = append(s.ProjectsByStatus, Count{Label: string(st), Count: byStatus[st]})
	}
	s.ProjectsByFaculty = sortedCounts(byFaculty)
	s.ProjectsByCategory = sortedCounts(byCategory)

	s.ProjectsByYear = make([]YearCount, 0, len(byYear))
	for y, n := range byYear {
		s.ProjectsByYear = append(s.ProjectsByYear, YearCount{Year: y, Count: n})
	}
	sort.Slice(s.ProjectsByYear, func(i, j int) bool {
		return s.ProjectsByYear[i].Year < s.ProjectsByYear[j].Year
	})

	users := make(map[uuid.UUID]model.User, len(submitters))
	for _, u := range submitters {
		users[u.ID] = u
	}

	s.ActiveInnovators = topInnovators(perSubmitter, users, opts.TopN)
	s.RecentProjects = recentProjects(projects, users, opts.RecentN)
	return s
}

// sortedCounts orders by count descending, then label ascending.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// topInnovators ranks by project count descending; ties go to the earlier
// registered user, then the smaller id.
func topInnovators(counts map[uuid.UUID]int, users map[uuid.UUID]model.User, n int) []Innovator {
	type ranked struct {
		Innovator
		registered time.Time
	}
	all := make([]ranked, 0, len(counts))
	for id, c := range counts {
		u := users[id]
		all = append(all, ranked{
			Innovator:  Innovator{ID: id, FullName: u.FullName, Email: u.Email, ProjectCount: c},
			registered: u.CreatedAt,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.ProjectCount != b.ProjectCount {
			return a.ProjectCount > b.ProjectCount
		}
		if !a.registered.Equal(b.registered) {
			return a.registered.Before(b.registered)
		}
		return a.ID.String() < b.ID.String()
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	out := make([]Innovator, 0, len(all))
	for _, r := range all {
		out = append(out, r.Innovator)
	}
	return out
}

func recentProjects(projects []model.Project, users map[uuid.UUID]model.User, n int) []RecentProject {
	sorted := make([]model.Project, len(projects))
	copy(sorted, projects)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() > sorted[j].ID.String()
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]RecentProject, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, RecentProject{
			ID:            p.ID,
			Title:         p.Title,
			Status:        p.Status,
			CreatedAt:     p.CreatedAt,
			SubmitterName: users[p.SubmitterID].FullName,
		})
	}
	return out
}
