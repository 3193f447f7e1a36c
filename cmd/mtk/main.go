// moontinker CLI - compile, extract, and serve block program sketches
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Magrawal16/moontinker/blocks"
	"github.com/Magrawal16/moontinker/compiler"
	"github.com/Magrawal16/moontinker/manifest"
	"github.com/Magrawal16/moontinker/server"
	"github.com/Magrawal16/moontinker/storage"
	"github.com/Magrawal16/moontinker/workspace"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	dbPath := flag.String("db", "", "Sketch database path (defaults to the manifest's storage path)")
	name := flag.String("name", "", "Sketch name to operate on")
	extract := flag.String("extract", "", "Extract a script file into the named sketch")
	compileTo := flag.String("o", "", "Output file for -name compilation (default stdout)")
	doCompile := flag.Bool("compile", false, "Compile the named sketch to script text")
	roundtrip := flag.String("roundtrip", "", "Extract a script file and verify it recompiles identically")
	list := flag.Bool("list", false, "List stored sketches")
	serveMode := flag.Bool("serve", false, "Start the LSP bridge on stdio")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mtk [options]\n\n")
		fmt.Fprintf(os.Stderr, "Keeps block program sketches and their script text in sync.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mtk -extract blink.mtk -name blink   # Store blink.mtk as sketch 'blink'\n")
		fmt.Fprintf(os.Stderr, "  mtk -compile -name blink              # Print the sketch's script text\n")
		fmt.Fprintf(os.Stderr, "  mtk -roundtrip blink.mtk              # Check extract/compile stability\n")
		fmt.Fprintf(os.Stderr, "  mtk -serve                            # LSP bridge for editors\n")
	}
	flag.Parse()

	reg := blocks.Builtin()

	if *serveMode {
		if err := server.NewLSP(reg).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *roundtrip != "" {
		if err := runRoundtrip(reg, *roundtrip, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	store, err := openStore(*dbPath, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *list:
		names, err := store.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, n := range names {
			fmt.Println(n)
		}

	case *extract != "":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "Error: -extract requires -name")
			os.Exit(1)
		}
		if err := runExtract(reg, store, *extract, *name, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case *doCompile:
		if *name == "" {
			fmt.Fprintln(os.Stderr, "Error: -compile requires -name")
			os.Exit(1)
		}
		if err := runCompile(reg, store, *name, *compileTo); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// openStore resolves the sketch database: explicit flag first, then the
// nearest manifest, then a local default.
func openStore(dbPath string, verbose bool) (*storage.Store, error) {
	path := dbPath
	if path == "" {
		m, err := manifest.FindAndLoad(".")
		if err != nil {
			return nil, err
		}
		if m != nil {
			path = m.StoragePath()
		} else {
			path = "sketches.db"
		}
	}
	if verbose {
		fmt.Printf("Using sketch database %s\n", path)
	}
	return storage.Open(path)
}

func runExtract(reg *blocks.Registry, store *storage.Store, file, name string, verbose bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	g, bad, err := compiler.Extract(string(data), reg)
	if err != nil {
		return err
	}
	for _, u := range bad {
		fmt.Fprintf(os.Stderr, "Warning: %s:%d: unrecognized: %s\n", file, u.Line, u.Text)
	}
	// Stored sketches carry no floating value trees, whatever produced
	// the graph.
	ws := workspace.FromGraph(g, reg)
	dropped, err := ws.Collect()
	if err != nil {
		return err
	}
	text, err := ws.Text()
	if err != nil {
		return err
	}
	if err := store.Put(name, ws.Graph(), text); err != nil {
		return err
	}
	if verbose {
		fmt.Printf("Stored sketch %q (%d nodes, %d unrecognized lines, %d collected)\n", name, g.Len(), len(bad), dropped)
	}
	return nil
}

func runCompile(reg *blocks.Registry, store *storage.Store, name, out string) error {
	sketch, err := store.Get(name)
	if err != nil {
		return err
	}
	text, err := compiler.Compile(sketch.Graph, reg)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Print(text)
		return nil
	}
	return os.WriteFile(out, []byte(text), 0o644)
}

func runRoundtrip(reg *blocks.Registry, file string, verbose bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	g, bad, err := compiler.Extract(string(data), reg)
	if err != nil {
		return err
	}
	if len(bad) > 0 {
		for _, u := range bad {
			fmt.Fprintf(os.Stderr, "%s:%d: unrecognized: %s\n", file, u.Line, u.Text)
		}
		return fmt.Errorf("%d unrecognized fragments", len(bad))
	}
	first, err := compiler.Compile(g, reg)
	if err != nil {
		return err
	}
	g2, _, err := compiler.Extract(first, reg)
	if err != nil {
		return err
	}
	second, err := compiler.Compile(g2, reg)
	if err != nil {
		return err
	}
	if first != second {
		return fmt.Errorf("round trip diverged:\n--- first\n%s\n--- second\n%s", first, second)
	}
	if verbose {
		fmt.Printf("%s: stable over %d lines\n", file, strings.Count(first, "\n"))
	}
	fmt.Println("ok")
	return nil
}
