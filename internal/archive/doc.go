// Package archive decodes distribution and repository archives into file sets.
//
// Wheels, eggs and zip files are read with klauspost/compress/zip; source
// distributions may be gzip, bzip2 or xz compressed tarballs.
package archive
