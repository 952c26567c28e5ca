// Command pycfgrepl is an interactive read-eval-print loop. Like the
// teacher's cmd/luxrepl, it is not an incremental evaluator: every
// submitted block is appended to an in-memory history of source lines,
// and each Enter re-evaluates the full accumulated source from scratch,
// then reports whichever bindings are new or changed. This keeps the
// REPL's semantics identical to running the same lines through `pycfg`
// as a file, with no separate "interactive mode" execution path to keep
// in sync.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/kessler-lang/pycfg"
	"github.com/kessler-lang/pycfg/internal/replconfig"
)

type repl struct {
	cfg      *replconfig.Config
	line     *liner.State
	history  []string
	lastVals map[string]any
}

func main() {
	home, _ := os.UserHomeDir()
	cfg, err := replconfig.Load(filepath.Join(home, ".pycfgrc.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pycfgrepl: %v\n", err)
		os.Exit(1)
	}

	r := &repl{cfg: cfg, line: liner.NewLiner(), lastVals: map[string]any{}}
	defer r.line.Close()
	r.line.SetCtrlCAborts(true)

	histPath := filepath.Join(home, cfg.HistoryFile)
	if f, err := os.Open(histPath); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("pycfg REPL — type 'exit', 'help', or 'clear' to get started")
	r.loop()
}

func (r *repl) loop() {
	for {
		text, err := r.line.Prompt(r.cfg.Prompt)
		if err != nil {
			return
		}
		trimmed := strings.TrimSpace(text)
		r.line.AppendHistory(text)

		switch trimmed {
		case "exit", "quit":
			return
		case "help":
			r.printHelp()
			continue
		case "clear":
			r.history = nil
			r.lastVals = map[string]any{}
			fmt.Println("history cleared")
			continue
		case "":
			continue
		}

		r.history = append(r.history, text)
		r.evaluate()
	}
}

func (r *repl) printHelp() {
	fmt.Println("exit, quit       leave the REPL")
	fmt.Println("clear            discard accumulated source")
	fmt.Println("help             show this message")
	fmt.Println("anything else is appended to the running source and re-evaluated")
}

func (r *repl) evaluate() {
	src := strings.Join(r.history, "\n") + "\n"
	var opts []pycfg.Option
	if r.cfg.Trace {
		opts = append(opts, pycfg.WithTrace())
	}
	result, err := pycfg.Eval(src, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		// Drop the line that broke evaluation so the REPL stays usable.
		r.history = r.history[:len(r.history)-1]
		return
	}
	for _, k := range result.Globals.Keys {
		v := result.Values[k]
		if old, ok := r.lastVals[k]; !ok || fmt.Sprintf("%#v", old) != fmt.Sprintf("%#v", v) {
			fmt.Printf("%s = %#v\n", k, v)
		}
	}
	r.lastVals = result.Values
}
