// Package githubauth resolves the access token used to read private source repositories.
package githubauth
