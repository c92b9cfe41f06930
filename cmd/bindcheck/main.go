// cmd/bindcheck validates binding configuration documents against the
// embedded CUE schema before they are shipped with a form.
//
// Usage:
//
//	bindcheck config.json [more.json ...]
//	bindcheck -          read one document from stdin
//	bindcheck -schema    print the schema and exit
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/matthewbaird/addrcascade/internal/bindcfg"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("bindcheck: ")

	args := os.Args[1:]
	if len(args) == 0 {
		log.Fatal("usage: bindcheck [-schema] file.json ...")
	}
	if args[0] == "-schema" {
		fmt.Print(bindcfg.Schema())
		return
	}

	failed := 0
	for _, path := range args {
		if err := check(path, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d documents invalid", failed, len(args))
	}
}

func check(path string, w io.Writer) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	cfg, err := bindcfg.Parse(data)
	if err != nil {
		return err
	}

	levels := cfg.EnabledLevels()
	names := make([]string, 0, len(levels))
	for _, l := range levels {
		f := cfg.Fields[l]
		name := l.String() + "=" + f.Ref
		if f.Modality != "" {
			name += "(" + f.Modality + ")"
		}
		names = append(names, name)
	}
	fmt.Fprintf(w, "%s: OK %s debounce=%s\n", path, strings.Join(names, " "), cfg.Debounce())
	return nil
}
