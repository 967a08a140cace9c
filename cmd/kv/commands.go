package kv

import (
	"encoding/hex"
	"fmt"

	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/lib/ext/builtin"
	"github.com/ValentinKolb/tKV/rpc/client"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, _ := cmd.Flags().GetUint64("table")
			asHex, _ := cmd.Flags().GetBool("hex")

			key, err := parseKey(args[0], asHex)
			if err != nil {
				return err
			}

			value, err := rpcClient.Get(wire.TenantID(tenantFlag()), wire.TableID(table), key)
			if status, ok := client.StatusOf(err); ok && status == wire.StatusObjectDoesNotExist {
				fmt.Printf("key=%s, found=false\n", args[0])
				return nil
			} else if err != nil {
				return err
			}

			if asHex {
				fmt.Printf("key=%s, found=true, len=%d, value=%s\n", args[0], len(value), hex.EncodeToString(value))
			} else {
				fmt.Printf("key=%s, found=true, len=%d, value=%q\n", args[0], len(value), value)
			}
			return nil
		},
	}

	invokeCmd = &cobra.Command{
		Use:   "invoke [name]",
		Short: "Invokes a server-side extension",
		Long: `Invokes a server-side extension of the tenant.

The arguments are either given as raw hex bytes (--raw-args) or built from --table, --key
and --value in the format understood by the builtin extensions (get, put, noop).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := invokeArgs(cmd)
			if err != nil {
				return err
			}

			if err := rpcClient.Invoke(wire.TenantID(tenantFlag()), args[0], callArgs); err != nil {
				return err
			}
			fmt.Printf("invoked %s successfully\n", args[0])
			return nil
		},
	}
)

func init() {
	getCmd.Flags().Uint64("table", 1, util.WrapString("ID of the table to read from"))
	getCmd.Flags().Bool("hex", false, util.WrapString("Interpret the key as hex and print the value as hex"))

	invokeCmd.Flags().Uint64("table", 1, util.WrapString("Table passed to the extension"))
	invokeCmd.Flags().String("key", "", util.WrapString("Key passed to the extension"))
	invokeCmd.Flags().String("value", "", util.WrapString("Value passed to the extension (e.g. for put)"))
	invokeCmd.Flags().String("raw-args", "", util.WrapString("Hex encoded argument bytes, sent as is. Cannot be combined with --table, --key or --value"))
	invokeCmd.MarkFlagsMutuallyExclusive("raw-args", "key")
	invokeCmd.MarkFlagsMutuallyExclusive("raw-args", "value")
	invokeCmd.MarkFlagsMutuallyExclusive("raw-args", "table")
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func parseKey(key string, asHex bool) ([]byte, error) {
	if !asHex {
		return []byte(key), nil
	}
	b, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	return b, nil
}

// invokeArgs builds the argument bytes of an invoke request from the command flags
func invokeArgs(cmd *cobra.Command) ([]byte, error) {
	if cmd.Flags().Changed("raw-args") {
		raw, _ := cmd.Flags().GetString("raw-args")
		b, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("raw-args is not valid hex: %w", err)
		}
		return b, nil
	}

	if !cmd.Flags().Changed("key") && !cmd.Flags().Changed("value") && !cmd.Flags().Changed("table") {
		return nil, nil
	}

	table, _ := cmd.Flags().GetUint64("table")
	key, _ := cmd.Flags().GetString("key")
	value, _ := cmd.Flags().GetString("value")

	a := builtin.Args{Table: wire.TableID(table), Key: []byte(key)}
	if cmd.Flags().Changed("value") {
		a.Value = []byte(value)
	}
	return builtin.EncodeArgs(a)
}
