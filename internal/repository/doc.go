// Package repository reads tags and tagged file trees from source repositories.
//
// GitClient speaks the git protocol through go-git and keeps everything in
// memory; file:// identifiers open an existing local clone instead. ArchiveClient
// lists tags the same way but downloads a tag snapshot archive over HTTP.
package repository
