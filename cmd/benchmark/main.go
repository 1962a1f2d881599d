package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/spf13/cobra"

	"simplerdb/pkg/client"
	"simplerdb/pkg/common"
	"simplerdb/pkg/core"
)

var columns = []string{"id", "name", "email", "city"}

func main() {
	var (
		rows    int
		degrees []int
		tcpAddr string
		seed    int64
	)

	rootCmd := &cobra.Command{
		Use:          "simplerdb-bench",
		Short:        "Insert and lookup benchmark over synthetic rows",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := generateRows(rows)
			rng := rand.New(rand.NewSource(seed))

			fmt.Printf("SimpleRDB Benchmark (rows=%d)\n", len(data))
			fmt.Println("---------------------------------------------------")

			if tcpAddr != "" {
				return runRemote(tcpAddr, data, rng)
			}
			for _, d := range degrees {
				if err := runEmbedded(d, data, rng); err != nil {
					return err
				}
			}
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().IntVarP(&rows, "rows", "n", 10000, "Number of synthetic rows")
	rootCmd.Flags().IntSliceVar(&degrees, "degree", []int{2, 4, 16, 64}, "B+Tree degrees to compare")
	rootCmd.Flags().StringVar(&tcpAddr, "tcp", "", "Run against a server at this address instead of in process")
	rootCmd.Flags().Int64Var(&seed, "seed", 1, "Seed for the lookup order")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func generateRows(n int) []common.Row {
	out := make([]common.Row, n)
	for i := range out {
		out[i] = common.Row{
			faker.UUIDDigit(),
			faker.Name(),
			faker.Email(),
			faker.Word(),
		}
	}
	return out
}

func runEmbedded(degree int, data []common.Row, rng *rand.Rand) error {
	t, err := core.NewTable(columns, degree)
	if err != nil {
		return err
	}

	dups := 0
	start := time.Now()
	for _, r := range data {
		if err := t.Insert(r); err != nil {
			if errors.Is(err, core.ErrDuplicateKey) {
				dups++
				continue
			}
			return err
		}
	}
	insert := time.Since(start)

	order := rng.Perm(len(data))
	start = time.Now()
	for _, i := range order {
		if _, err := t.SelectWhere("id", data[i][0]); err != nil {
			return err
		}
	}
	lookup := time.Since(start)

	start = time.Now()
	scanned := len(t.SelectAll())
	scan := time.Since(start)

	if err := t.Check(); err != nil {
		return err
	}

	fmt.Printf(">> degree=%d height=%d rows=%d dup=%d\n", degree, t.Height(), t.Len(), dups)
	fmt.Printf("   insert: %v (%s/op)\n", insert, perOp(insert, len(data)))
	fmt.Printf("   lookup: %v (%s/op)\n", lookup, perOp(lookup, len(order)))
	fmt.Printf("   scan:   %v (%d rows)\n\n", scan, scanned)
	return nil
}

func runRemote(addr string, data []common.Row, rng *rand.Rand) error {
	cli, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer cli.Close()

	table := fmt.Sprintf("bench_%d", time.Now().UnixNano())
	if _, err := cli.Query(fmt.Sprintf("CREATE TABLE %s (id, name, email, city)", table)); err != nil {
		return err
	}

	skipped, dups := 0, 0
	start := time.Now()
	for _, r := range data {
		stmt, ok := insertStmt(table, r)
		if !ok {
			skipped++
			continue
		}
		if _, err := cli.Query(stmt); err != nil {
			var remote *client.RemoteError
			if errors.As(err, &remote) && remote.Category == "data" {
				dups++
				continue
			}
			return err
		}
	}
	insert := time.Since(start)

	order := rng.Perm(len(data))
	start = time.Now()
	for _, i := range order {
		id, ok := quote(data[i][0])
		if !ok {
			continue
		}
		if _, err := cli.Query(fmt.Sprintf("SELECT * FROM %s WHERE id = %s", table, id)); err != nil {
			return err
		}
	}
	lookup := time.Since(start)

	fmt.Printf(">> remote %s table=%s dup=%d skipped=%d\n", addr, table, dups, skipped)
	fmt.Printf("   insert: %v | QPS: %.0f\n", insert, float64(len(data))/insert.Seconds())
	fmt.Printf("   lookup: %v | QPS: %.0f\n", lookup, float64(len(order))/lookup.Seconds())
	return nil
}

func insertStmt(table string, r common.Row) (string, bool) {
	values := make([]string, len(r))
	for i, v := range r {
		q, ok := quote(v)
		if !ok {
			return "", false
		}
		values[i] = q
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(values, ", ")), true
}

// quote wraps v in whichever quote character it does not contain. Values
// holding both kinds cannot be written as a literal.
func quote(v string) (string, bool) {
	switch {
	case !strings.Contains(v, "'"):
		return "'" + v + "'", true
	case !strings.Contains(v, `"`):
		return `"` + v + `"`, true
	default:
		return "", false
	}
}

func perOp(d time.Duration, n int) time.Duration {
	if n == 0 {
		return 0
	}
	return d / time.Duration(n)
}
