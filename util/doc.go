// Package util holds small parsing helpers shared by the HTTP surface.
package util
