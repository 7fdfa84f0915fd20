// Package workflow holds the status vocabularies of the portal and the pure
// functions that derive display values (progress, labels, steps) from them.
package workflow

import (
	"fmt"
)

type ProjectStatus string

const (
	StatusAwaitingInfo     ProjectStatus = "awaiting_info"
	StatusInDevelopment    ProjectStatus = "in_development"
	StatusInReview         ProjectStatus = "in_review"
	StatusAwaitingApproval ProjectStatus = "awaiting_approval"
	StatusPublished        ProjectStatus = "published"
)

// projectStatuses is the nominal order of the delivery pipeline.
var projectStatuses = []ProjectStatus{
	StatusAwaitingInfo,
	StatusInDevelopment,
	StatusInReview,
	StatusAwaitingApproval,
	StatusPublished,
}

type projectStatusInfo struct {
	label    string
	progress int
}

var projectStatusTable = map[ProjectStatus]projectStatusInfo{
	StatusAwaitingInfo:     {label: "Aguardando informações", progress: 10},
	StatusInDevelopment:    {label: "Em desenvolvimento", progress: 40},
	StatusInReview:         {label: "Em revisão", progress: 65},
	StatusAwaitingApproval: {label: "Aguardando aprovação", progress: 85},
	StatusPublished:        {label: "Publicado", progress: 100},
}

// ProjectStatuses returns every project status in pipeline order.
func ProjectStatuses() []ProjectStatus {
	out := make([]ProjectStatus, len(projectStatuses))
	copy(out, projectStatuses)
	return out
}

func (s ProjectStatus) Valid() bool {
	_, ok := projectStatusTable[s]
	return ok
}

// Index returns the position of s in the pipeline, or -1 when s is unknown.
func (s ProjectStatus) Index() int {
	for i, st := range projectStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseProjectStatus validates a raw status before it is written anywhere.
func ParseProjectStatus(raw string) (ProjectStatus, error) {
	s := ProjectStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown project status %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// ProgressOf maps a status to its completion percentage. Unknown or empty
// values read as awaiting_info, so a corrupted row renders at 10% instead of
// failing the page.
func ProgressOf(status string) int {
	if info, ok := projectStatusTable[ProjectStatus(status)]; ok {
		return info.progress
	}
	return projectStatusTable[StatusAwaitingInfo].progress
}

// ProjectStatusLabel returns the badge label shown to clients, with the same
// fallback as ProgressOf.
func ProjectStatusLabel(status string) string {
	if info, ok := projectStatusTable[ProjectStatus(status)]; ok {
		return info.label
	}
	return projectStatusTable[StatusAwaitingInfo].label
}

type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepPending   StepState = "pending"
)

type Step struct {
	Key   ProjectStatus `json:"key"`
	Label string        `json:"label"`
	State StepState     `json:"state"`
}

var stepLabels = map[ProjectStatus]string{
	StatusAwaitingInfo:     "Briefing Recebido",
	StatusInDevelopment:    "Em Desenvolvimento",
	StatusInReview:         "Em Revisão",
	StatusAwaitingApproval: "Aguardando Aprovação",
	StatusPublished:        "Entregue",
}

// Steps renders the progress stepper for a project. Steps before the current
// status are completed and later ones pending. An unknown status has no
// current step, so every step is pending.
func Steps(status string) []Step {
	current := ProjectStatus(status).Index()
	steps := make([]Step, 0, len(projectStatuses))
	for i, s := range projectStatuses {
		state := StepPending
		switch {
		case current < 0:
		case i < current:
			state = StepCompleted
		case i == current:
			state = StepCurrent
		}
		steps = append(steps, Step{Key: s, Label: stepLabels[s], State: state})
	}
	return steps
}

type ServiceType string

const (
	ServiceLandingPage       ServiceType = "landing_page"
	ServiceInstitutionalSite ServiceType = "institutional_site"
	ServiceBlog              ServiceType = "blog"
	ServiceEcommerce         ServiceType = "ecommerce"
	ServiceWebApp            ServiceType = "web_app"
	ServiceOther             ServiceType = "other"
)

var serviceLabels = map[ServiceType]string{
	ServiceLandingPage:       "Landing Page",
	ServiceInstitutionalSite: "Site Institucional",
	ServiceBlog:              "Blog",
	ServiceEcommerce:         "E-commerce",
	ServiceWebApp:            "Web App",
	ServiceOther:             "Outro",
}

// ParseServiceType defaults an empty value to landing_page, the column default.
func ParseServiceType(raw string) (ServiceType, error) {
	if raw == "" {
		return ServiceLandingPage, nil
	}
	s := ServiceType(raw)
	if _, ok := serviceLabels[s]; !ok {
		return "", fmt.Errorf("%w: unknown service type %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// ServiceLabel falls back to the raw value for types it does not know.
func ServiceLabel(raw string) string {
	if label, ok := serviceLabels[ServiceType(raw)]; ok {
		return label
	}
	return raw
}
