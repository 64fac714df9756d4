package security

import (
	"regexp"
	"strings"

	"github.com/calegray/codedock/internal/domain"
)

// Hosting-platform naming rules. Owner: 1-39 chars, alphanumeric or
// hyphen, no leading/trailing/double hyphen. Name: 1-100 chars of
// alphanumeric, dot, underscore or hyphen, no ".." and no trailing
// ".git".
var (
	repoOwnerPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9]|-[a-zA-Z0-9]){0,38}$`)
	repoNamePattern  = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// ValidateRepoOwner checks a repository owner against platform rules.
func ValidateRepoOwner(owner string) error {
	if owner == "" {
		return domain.NewValidationError("repo_owner", "must not be empty")
	}
	if len(owner) > 39 {
		return domain.NewValidationError("repo_owner", "must be at most 39 characters")
	}
	if !repoOwnerPattern.MatchString(owner) {
		return domain.NewValidationError("repo_owner", "must be alphanumeric with single inner hyphens")
	}
	return nil
}

// ValidateRepoName checks a repository name against platform rules.
func ValidateRepoName(name string) error {
	if name == "" {
		return domain.NewValidationError("repo_name", "must not be empty")
	}
	if len(name) > 100 {
		return domain.NewValidationError("repo_name", "must be at most 100 characters")
	}
	if !repoNamePattern.MatchString(name) {
		return domain.NewValidationError("repo_name", "contains invalid characters")
	}
	if strings.Contains(name, "..") {
		return domain.NewValidationError("repo_name", "must not contain '..'")
	}
	if strings.HasSuffix(strings.ToLower(name), ".git") {
		return domain.NewValidationError("repo_name", "must not end in .git")
	}
	return nil
}

// NormalizeRepo validates and lowercases a repo owner/name pair for
// storage and lookup.
func NormalizeRepo(owner, name string) (string, string, error) {
	if err := ValidateRepoOwner(owner); err != nil {
		return "", "", err
	}
	if err := ValidateRepoName(name); err != nil {
		return "", "", err
	}
	return strings.ToLower(owner), strings.ToLower(name), nil
}
