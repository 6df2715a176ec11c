// Package match decides whether a declared schema name already exists under a
// slightly different spelling.
package match
