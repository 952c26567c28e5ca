// Command pycfg runs a single configuration file to completion and prints
// its top-level bindings, the one-shot counterpart to cmd/pycfgrepl. Flag
// shape follows the teacher's cmd/nux/main.go (-debug/-trace).
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/kessler-lang/pycfg"
)

func main() {
	trace := flag.Bool("trace", false, "print one line per executed instruction")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pycfg [-trace] <file.pycfg>")
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pycfg: %v\n", err)
		os.Exit(1)
	}

	var opts []pycfg.Option
	if *trace {
		opts = append(opts, pycfg.WithTrace())
	}

	result, err := pycfg.Eval(string(data), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pycfg: %v\n", err)
		os.Exit(1)
	}

	keys := append([]string(nil), result.Globals.Keys...)
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s = %#v\n", k, result.Values[k])
	}
}
