// Package registry reads published releases from the PyPI JSON API.
//
// Client lists a project's versions in publication order and downloads the
// distribution file chosen for a version, verifying the published sha256
// digest before handing the bytes to callers.
package registry
