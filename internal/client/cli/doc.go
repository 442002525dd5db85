// Package cli provides the interactive CivicSync command-line client.
//
// The client embeds the whole engine: a store (in-memory demo data or
// PostgreSQL), the lifecycle and counter services and a local identity
// provider. Users sign in, browse and report issues, move issues through
// their workflow when signed in as an authority, and watch issues for
// changes made by anyone sharing the same notifier.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
