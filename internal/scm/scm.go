// Package scm defines the narrow interface to the source-hosting
// collaborator. The concrete API wrapper lives outside this service;
// the actor only ever passes a decrypted token through transiently for
// the duration of one call.
package scm

import "context"

// PullRequest is the hosting platform's view of a created PR.
type PullRequest struct {
	Number  int    `json:"number"`
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
}

// CreatePullRequestInput carries the parameters for PR creation.
type CreatePullRequestInput struct {
	Owner string
	Repo  string
	Title string
	Body  string
	Head  string
	Base  string
	Token string
}

// Client is the source-hosting collaborator.
type Client interface {
	CreatePullRequest(ctx context.Context, input CreatePullRequestInput) (*PullRequest, error)
}
