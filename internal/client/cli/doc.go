// Package cli provides the interactive gallery client.
//
// It wires configuration, the local store, the mirror client and the
// application services into a REPL that works the same online and offline.
// Typical flow: restore or prompt for an offline account, start a background
// connectivity watcher, and execute user commands.
//
// Key features:
//   - Register / Login / Logout (offline accounts, username and PIN)
//   - Generate images, list, show, export and delete them
//   - Folders: mkdir, folders, rmdir
//   - Sync, stats, cleanup and sync queue status
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
