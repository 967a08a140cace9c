package builtin

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/vmihailenco/msgpack/v5"
)

var log = logger.GetLogger("ext")

var (
	// ErrAccessDenied is returned when an extension is called with a handle that lacks a required capability
	ErrAccessDenied = errors.New("access denied")
	// ErrMissingArgs is returned when an extension requires arguments but got none
	ErrMissingArgs = errors.New("missing arguments")
	// ErrNotFound is returned by get if the key does not exist
	ErrNotFound = errors.New("key not found")
)

func init() {
	ext.RegisterBuiltin("get", func() ext.Extension { return ext.ExtensionFunc(get) })
	ext.RegisterBuiltin("put", func() ext.Extension { return ext.ExtensionFunc(put) })
	ext.RegisterBuiltin("noop", func() ext.Extension { return ext.ExtensionFunc(noop) })
}

// --------------------------------------------------------------------------
// Arguments
// --------------------------------------------------------------------------

// Args are the arguments understood by the builtin extensions, encoded with msgpack.
type Args struct {
	Table wire.TableID `msgpack:"t"`
	Key   []byte       `msgpack:"k"`
	Value []byte       `msgpack:"v,omitempty"`
}

// EncodeArgs encodes the arguments for an invoke request.
func EncodeArgs(args Args) ([]byte, error) {
	b, err := msgpack.Marshal(&args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode args: %w", err)
	}
	return b, nil
}

// DecodeArgs decodes the argument bytes of an invoke request.
func DecodeArgs(b []byte) (Args, error) {
	var args Args
	if err := msgpack.Unmarshal(b, &args); err != nil {
		return Args{}, fmt.Errorf("failed to decode args: %w", err)
	}
	return args, nil
}

// --------------------------------------------------------------------------
// Extensions
// --------------------------------------------------------------------------

// get looks up a key in a table of the tenant.
// Without arguments it only checks that it was invoked and succeeds.
func get(db ext.DB, raw []byte) error {
	if len(raw) == 0 {
		log.Debugf("get invoked by tenant %d without arguments", db.Tenant())
		return nil
	}

	reader, ok := db.(ext.ReaderDB)
	if !ok {
		return fmt.Errorf("%w: get requires read access", ErrAccessDenied)
	}

	args, err := DecodeArgs(raw)
	if err != nil {
		return err
	}

	_, found, err := reader.Get(args.Table, args.Key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: table %d", ErrNotFound, args.Table)
	}
	return nil
}

// put writes a key into a table of the tenant.
func put(db ext.DB, raw []byte) error {
	if len(raw) == 0 {
		return ErrMissingArgs
	}

	writer, ok := db.(ext.WriterDB)
	if !ok {
		return fmt.Errorf("%w: put requires write access", ErrAccessDenied)
	}

	args, err := DecodeArgs(raw)
	if err != nil {
		return err
	}
	return writer.Put(args.Table, args.Key, args.Value)
}

// noop does nothing, it is useful to measure the invocation overhead.
func noop(_ ext.DB, _ []byte) error {
	return nil
}
