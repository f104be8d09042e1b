// Package language normalizes locale identifiers for track selection and
// container metadata.
//
// Catalog locales arrive as BCP-47 tags ("ja-JP"); output containers want
// ISO 639-2 codes ("jpn"). Parsing goes through golang.org/x/text/language so
// regional variants are handled consistently.
package language
