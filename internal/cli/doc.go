// Package cli holds the presentation helpers shared by the knowledgecore commands:
//
//   - output format selection (table, json, yaml) and rendering
//   - go-pretty tables for fleet health, profiles and reconciliation results
//   - a spinner for long-running operations, silenced by --quiet or
//     non-table output
//   - mapping of error kinds onto user-facing messages and exit codes
package cli
