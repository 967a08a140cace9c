// Package builtin contains the extensions compiled into the tKV server.
//
// Importing the package registers the extensions with the ext package, they can then
// be loaded with the source "builtin:<name>":
//
//   - get:  looks up Args.Key in Args.Table, fails if the key does not exist (read access)
//   - put:  writes Args.Value for Args.Key into Args.Table (write access)
//   - noop: does nothing
//
// Arguments are msgpack encoded Args values (see EncodeArgs).
package builtin
