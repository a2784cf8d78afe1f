// Package commands defines the parley CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init           Create the device identity and register it
//   - fingerprint    Print the identity fingerprint
//   - direct         Start (or reuse) a direct conversation
//   - group          Create and manage group conversations
//   - chats          List cached conversations
//   - send           Encrypt and send a message
//   - recv           Fetch and decrypt queued messages
//   - pin            Pin, unpin and list pinned messages
//   - typing         Emit a typing indicator
//   - call           Start, answer and hang up calls
//   - backup         Export and import the passphrase-protected backup
//   - listen         Consume pushed relay events until interrupted
//
// # Implementation
//
// The root command builds the dependency graph (stores, services, relay
// client) before any subcommand runs, so handlers share one app context.
package commands
