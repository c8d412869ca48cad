// internal/model/models.go
package model

import (
	"fmt"
	"strings"
	"time"
)

// UnknownLanguage replaces a missing repository language.
const UnknownLanguage = "Unknown"

// Visibility is the GitHub visibility of a repository.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
)

// ParseVisibility accepts the values GitHub reports, case-insensitively.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case VisibilityPublic, VisibilityPrivate, VisibilityInternal:
		return v, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// Owner references the account owning a repository.
type Owner struct {
	Login string `json:"login" yaml:"login"`
	URL   string `json:"url" yaml:"url"`
}

// RepositorySummary is one repository as listed on the dashboard.
// It is immutable once fetched within a session.
type RepositorySummary struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Language        string     `json:"language"`
	Visibility      Visibility `json:"visibility"`
	Size            int        `json:"size"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Owner           Owner      `json:"owner"`
	Private         bool       `json:"private"`
	Archived        bool       `json:"archived"`
	DefaultBranch   string     `json:"default_branch"`
	ForksCount      int        `json:"forks_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	HTMLURL         string     `json:"html_url"`
	CloneURL        string     `json:"clone_url"`
	SSHURL          string     `json:"ssh_url"`
	LanguagesURL    string     `json:"languages_url"`
}

// SortOrder selects how the dashboard orders repositories.
type SortOrder string

const (
	SortByName    SortOrder = "name"
	SortByCreated SortOrder = "created"
	SortByUpdated SortOrder = "updated"
)

// ParseSortOrder maps user input to a SortOrder. The numeric forms match the
// indexes the browser client stores.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "0":
		return SortByName, nil
	case "created", "1":
		return SortByCreated, nil
	case "updated", "2":
		return SortByUpdated, nil
	default:
		return "", fmt.Errorf("unknown sort order %q, expected name, created or updated", s)
	}
}

// Preferences are the UI toggles shared by dashboard views.
type Preferences struct {
	SortOrder    SortOrder `yaml:"sort_order" json:"sortOrder"`
	ShowTags     bool      `yaml:"show_tags" json:"showTags"`
	ShowRepoSize bool      `yaml:"show_repo_size" json:"showRepoSize"`
	DarkMode     bool      `yaml:"dark_mode" json:"darkMode"`
}

// DefaultPreferences mirrors the initial state of the browser client.
func DefaultPreferences() Preferences {
	return Preferences{
		SortOrder:    SortByName,
		ShowTags:     true,
		ShowRepoSize: true,
	}
}

// CreateRepositoryRequest is the body accepted by the create-repo endpoint.
type CreateRepositoryRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Visibility   string `json:"visibility"`
	AutoInit     bool   `json:"autoInit,omitempty"`
	AllowForking *bool  `json:"allowForking,omitempty"`
}

// LanguageBreakdown is the language usage of one repository.
type LanguageBreakdown struct {
	Languages   map[string]int     `json:"languages"`
	Percentages map[string]float64 `json:"percentages"`
}
