// Package boundary implements the reload boundary that separates the parts
// of a supervised application that are re-read on every start from the
// parts that stay resident for the whole session.
//
// Names are answered by one of two scopes:
//
//   - the HostScope lives as long as the supervisor. It resolves names
//     through the host's PATH once and never re-reads them. It also holds
//     the environment every instance inherits.
//   - a Scope is created for every start. It resolves reloadable names
//     from the current build output and stages a private copy of each
//     artifact, so a build tool rewriting the output cannot affect the
//     running instance. Closing the scope deletes the copies.
//
// A name is reloadable when it starts with one of the configured prefixes.
// Without prefixes every name is reloadable except those that belong to
// the platform itself (the Go toolchain and system directories).
package boundary
