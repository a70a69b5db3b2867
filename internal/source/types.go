package source

import (
	"fmt"
	"strings"
	"time"
)

// Repo identifies a repository as "owner/name".
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo splits an "owner/name" identifier.
func ParseRepo(s string) (Repo, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("invalid repository identifier %q, expected owner/name", s)
	}
	return Repo{Owner: parts[0], Name: parts[1]}, nil
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// MergeRequest is the normalized record for one pull request. Built once
// by the collector and read-only downstream.
type MergeRequest struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Author       string     `json:"author"`
	CreatedAt    time.Time  `json:"created_at"`
	MergedAt     *time.Time `json:"merged_at,omitempty"`
	SourceBranch string     `json:"source_branch"`
	TargetBranch string     `json:"target_branch"`
	ChangedFiles []string   `json:"changed_files"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	URL          string     `json:"url"`
}

// FileDiff is one changed file inside a ChangeSet. Binary files carry no
// patch text, only path and status.
type FileDiff struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Patch     string `json:"patch,omitempty"`
	Language  string `json:"language"`
	Binary    bool   `json:"binary,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// ChangeSet holds the extracted content of one merge request. File order
// matches the order returned by the provider.
type ChangeSet struct {
	Number         int        `json:"number"`
	Files          []FileDiff `json:"files"`
	CommitMessages []string   `json:"commit_messages"`
	ReviewComments []string   `json:"review_comments"`
}

// Paths returns the changed-file paths in change-set order.
func (cs ChangeSet) Paths() []string {
	paths := make([]string, len(cs.Files))
	for i, f := range cs.Files {
		paths[i] = f.Path
	}
	return paths
}
