// Command llst boots a VM from an image file and runs its initial
// method, per the CLI conventions the teacher repo's cmd/mag follows:
// stdlib flag parsing, a custom Usage, and an explicit exit code on
// failure rather than a panic.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/teodorov/llst/config"
	"github.com/teodorov/llst/image"
	"github.com/teodorov/llst/vm"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML VM configuration manifest")
		imagePath  = flag.String("image", "", "path to an image file to boot from")
		verbose    = flag.Bool("verbose", false, "write diagnostics to the configured log file instead of stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] -image <path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *imagePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadDefault()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logWriter, err := cfg.OpenLogWriter()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := log.New(logWriter, "llst: ", log.LstdFlags)
	if !*verbose {
		logger.SetOutput(os.Stderr)
	}

	heapCfg, err := cfg.Heap.ToVMHeapConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "llst: reading image: %v\n", err)
		os.Exit(1)
	}

	theVM := vm.New(vm.Config{Heap: heapCfg, Logger: logger})
	reader := image.NewReader(data, theVM.Heap, theVM.Globals.Nil)
	globals, err := reader.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "llst: loading image: %v\n", err)
		os.Exit(1)
	}
	theVM.Globals = globals

	code := vm.ExitOK
	if err := theVM.RunInitialMethod(); err != nil {
		fmt.Fprintf(os.Stderr, "llst: %v\n", err)
		code = vm.ExitRuntimeError
	}
	os.Exit(int(code))
}
