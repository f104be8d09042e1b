// Package textutil sanitizes catalog titles and track identifiers for use as
// file names.
package textutil
