package github

import (
	"log/slog"
	"strings"

	"github.com/google/go-github/v62/github"

	custom_errors "github-repo-dashboard/internal/errors"
	"github-repo-dashboard/internal/model"
)

// Summarize validates an upstream repository payload and translates it to a
// model.RepositorySummary. Records without an id or a name are rejected;
// every other missing field gets a default here, so consumers never see nils.
func Summarize(r *github.Repository) (model.RepositorySummary, error) {
	if r == nil {
		return model.RepositorySummary{}, &custom_errors.ValidationError{Field: "repository", Reason: "empty record"}
	}
	if r.GetID() == 0 {
		return model.RepositorySummary{}, &custom_errors.ValidationError{Field: "id", Reason: "missing"}
	}
	name := strings.TrimSpace(r.GetName())
	if name == "" {
		return model.RepositorySummary{}, &custom_errors.ValidationError{Field: "name", Reason: "missing"}
	}

	language := strings.TrimSpace(r.GetLanguage())
	if language == "" {
		language = model.UnknownLanguage
	}

	var visibility model.Visibility
	switch {
	case r.Visibility != nil:
		v, err := model.ParseVisibility(r.GetVisibility())
		if err != nil {
			return model.RepositorySummary{}, &custom_errors.ValidationError{Field: "visibility", Reason: err.Error()}
		}
		visibility = v
	case r.Private != nil && r.GetPrivate():
		visibility = model.VisibilityPrivate
	case r.Private != nil:
		visibility = model.VisibilityPublic
	}

	created := r.GetCreatedAt().Time
	updated := r.GetUpdatedAt().Time
	if updated.Before(created) {
		updated = created
	}

	return model.RepositorySummary{
		ID:         r.GetID(),
		Name:       name,
		Language:   language,
		Visibility: visibility,
		Size:       max(r.GetSize(), 0),
		CreatedAt:  created,
		UpdatedAt:  updated,
		Owner: model.Owner{
			Login: r.GetOwner().GetLogin(),
			URL:   r.GetOwner().GetURL(),
		},
		Private:         r.GetPrivate(),
		Archived:        r.GetArchived(),
		DefaultBranch:   r.GetDefaultBranch(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		HTMLURL:         r.GetHTMLURL(),
		CloneURL:        r.GetCloneURL(),
		SSHURL:          r.GetSSHURL(),
		LanguagesURL:    r.GetLanguagesURL(),
	}, nil
}

// SummarizeAll converts a page of repositories, dropping and logging records
// that fail validation.
func SummarizeAll(repos []*github.Repository, logger *slog.Logger) []model.RepositorySummary {
	out := make([]model.RepositorySummary, 0, len(repos))
	for i, r := range repos {
		s, err := Summarize(r)
		if err != nil {
			logger.Warn("Skipping invalid repository record", "index", i, "error", err)
			continue
		}
		out = append(out, s)
	}
	return out
}
