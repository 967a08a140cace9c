// Package cmd implements the command-line interface of tKV. It provides a
// hierarchical command structure for running the server and talking to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the server (datagram transport, admin api, provisioning)
//   - kv: Client commands (get, invoke) and a small benchmark tool (perf)
//   - util: Shared flag and configuration helpers (internal use)
//
// Every flag can also be set as environment variable TKV_<FLAG> (dashes become
// underscores), .env and .env.local in the working directory are loaded first.
//
// See tkv --help for a list of all commands.
package cmd
