// Package policy selects tracks by requested locale and decides what happens
// when a requested locale is not offered.
package policy
