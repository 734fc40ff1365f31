// Package util holds small helpers shared by expertpanel packages that are not
// part of the public API.
package util
