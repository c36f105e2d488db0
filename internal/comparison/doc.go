// Package comparison computes line-by-line differences between the files of a
// built distribution and the files of the matching repository tag.
package comparison
