// Package common provides the configuration structures and logging setup shared by
// the server, the client and the CLI.
//
// Key Components:
//
//   - ServerConfig: Transport, endpoint, worker pool and buffer sizing of the RPC
//     server, plus the admin API endpoint and the provisioning manifest.
//
//   - ClientConfig: Endpoint, timeouts and retry behavior of the RPC client.
//
//   - Logger: Custom logger factory for the dragonboat logger facade that all
//     packages log through (LEVEL | component | message lines).
package common
