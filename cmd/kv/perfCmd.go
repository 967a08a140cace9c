package kv

import (
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/lib/ext/builtin"
	"github.com/ValentinKolb/tKV/rpc/client"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for tKV servers",
		Long: `Runs a set of benchmarks against a running tKV server.

The benchmarks read an existing key (by default the key of the default bootstrap) and
invoke an extension with it. Nothing is written, so the tool can run against live data.`,
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 10
	perfTable      = wire.TableID(1)
	perfKey        = bytes.Repeat([]byte{1}, 30)
	perfExtension  = "get"
	perfSkip       = make([]string, 0)
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. get,invoke)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "table"
	perfTestCmd.Flags().Uint64(key, 1, util.WrapString("Table of the key used for the get benchmarks"))
	key = "key-hex"
	perfTestCmd.Flags().String(key, hex.EncodeToString(perfKey), util.WrapString("Hex encoded key that exists in the table"))
	key = "extension"
	perfTestCmd.Flags().String(key, perfExtension, util.WrapString("Extension used for the invoke benchmark, it receives the table and key as builtin arguments"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfNumThreads = viper.GetInt("threads")
	perfTable = wire.TableID(viper.GetUint64("table"))
	perfExtension = viper.GetString("extension")
	if s := viper.GetString("skip"); s != "" {
		perfSkip = strings.Split(s, ",")
	}

	k, err := hex.DecodeString(viper.GetString("key-hex"))
	if err != nil {
		return fmt.Errorf("key-hex is not valid hex: %w", err)
	}
	perfKey = k

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	tenant := wire.TenantID(tenantFlag())

	fmt.Println("Performance testing tool for tKV servers")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Tenant: %d, Table: %d, Key: %x\n", tenant, perfTable, perfKey)
	fmt.Println()

	// the key has to exist, otherwise every get benchmark only measures misses
	if _, err := rpcClient.Get(tenant, perfTable, perfKey); err != nil {
		return fmt.Errorf("benchmark key is not readable: %w", err)
	}

	invokeArgs, err := builtin.EncodeArgs(builtin.Args{Table: perfTable, Key: perfKey})
	if err != nil {
		return err
	}

	fmt.Println("staring tests...")

	results := make(map[string]testing.BenchmarkResult)

	results["get"] = benchmark("get", func(counter int) error {
		_, err := rpcClient.Get(tenant, perfTable, perfKey)
		return err
	})
	printResult("get", results["get"])

	results["get-miss"] = benchmark("get-miss", func(counter int) error {
		key := fmt.Appendf(nil, "__perf/miss-%d", counter%100)
		_, err := rpcClient.Get(tenant, perfTable, key)
		if status, ok := client.StatusOf(err); ok && status == wire.StatusObjectDoesNotExist {
			return nil
		}
		return err
	})
	printResult("get-miss", results["get-miss"])

	results["invoke"] = benchmark("invoke", func(counter int) error {
		return rpcClient.Invoke(tenant, perfExtension, invokeArgs)
	})
	printResult("invoke", results["invoke"])

	results["mixed"] = benchmark("mixed", func(counter int) error {
		if counter%2 == 0 {
			_, err := rpcClient.Get(tenant, perfTable, perfKey)
			return err
		}
		return rpcClient.Invoke(tenant, perfExtension, invokeArgs)
	})
	printResult("mixed", results["mixed"])

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs op in parallel until the testing package has a stable result
func benchmark(test string, op func(counter int) error) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test) {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := op(counter); err != nil {
					log.Printf("(%s) - error: %v\n", test, err)
				}
				counter++
			}
		})
	})
}

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "Transport", "TimeoutSec", "RetryCount",
		"Tenant", "Table", "Extension", "Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	tests := make([]string, 0, len(results))
	for test := range results {
		tests = append(tests, test)
	}
	slices.Sort(tests)

	for _, test := range tests {
		result := results[test]
		var nsPerOp, opsPerSec float64
		skipped := "true"
		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Endpoint,
			config.Transport,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.FormatUint(uint64(tenantFlag()), 10),
			strconv.FormatUint(uint64(perfTable), 10),
			perfExtension,
			strconv.Itoa(perfNumThreads),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
