package main

import (
	"flag"
	"fmt"
	"os"

	"hiretalk/pkg/store"
)

// inspect dumps raw keys from a database directory. Useful when
// debugging key layout issues against a copy of a production database.
func main() {
	db := flag.String("db", "./.database", "Pebble DB path")
	prefix := flag.String("prefix", "", "key prefix to scan (empty scans conversations)")
	values := flag.Bool("values", false, "print values as well as keys")
	flag.Parse()

	if err := store.Open(*db); err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *db, err)
		os.Exit(1)
	}
	defer store.Close()

	p := *prefix
	if p == "" {
		p = store.ConvKeyPrefix
	}
	keys, vals, err := store.ScanPrefixKeys(p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan %s: %v\n", p, err)
		os.Exit(1)
	}
	for i, k := range keys {
		if *values {
			fmt.Printf("%s\t%s\n", k, vals[i])
		} else {
			fmt.Println(k)
		}
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", len(keys))
}
