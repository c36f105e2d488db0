package audit

import (
	"context"

	"github.com/temirov/distaudit/internal/fileset"
	"github.com/temirov/distaudit/internal/registry"
)

// RegistryClient lists and downloads published distributions.
type RegistryClient interface {
	ListVersions(executionContext context.Context, packageName string) ([]string, error)
	GetDistribution(executionContext context.Context, packageName string, version string) (registry.Distribution, error)
}

// RepositoryClient lists tags and reads tagged files.
type RepositoryClient interface {
	ListTags(executionContext context.Context, repository string) ([]string, error)
	FilesAtTag(executionContext context.Context, repository string, tag string) (fileset.FileSet, error)
}

// ArchiveExtractor decodes distribution archives.
type ArchiveExtractor interface {
	Extract(name string, data []byte) (fileset.FileSet, error)
}

// ResultObserver receives progress notifications during a run.
type ResultObserver interface {
	AuditStarted(packageName string, versions []string)
	VersionAudited(result Result)
	AuditFinished()
}

// ObserverGroup fans notifications out to several observers in order.
type ObserverGroup []ResultObserver

// AuditStarted notifies every observer.
func (group ObserverGroup) AuditStarted(packageName string, versions []string) {
	for _, observer := range group {
		observer.AuditStarted(packageName, versions)
	}
}

// VersionAudited notifies every observer.
func (group ObserverGroup) VersionAudited(result Result) {
	for _, observer := range group {
		observer.VersionAudited(result)
	}
}

// AuditFinished notifies every observer.
func (group ObserverGroup) AuditFinished() {
	for _, observer := range group {
		observer.AuditFinished()
	}
}

type noopObserver struct{}

func (noopObserver) AuditStarted(string, []string) {}

func (noopObserver) VersionAudited(Result) {}

func (noopObserver) AuditFinished() {}
