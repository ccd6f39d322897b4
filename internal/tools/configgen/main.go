package main

import (
	"flag"
	"fmt"
	"os"

	"pkt.systems/ailimit/internal/appconfig"
)

func main() {
	var output string
	var overwrite bool
	flag.StringVar(&output, "output", "config.example.yaml", "output file")
	flag.StringVar(&output, "o", "config.example.yaml", "output file")
	flag.BoolVar(&overwrite, "force", false, "overwrite an existing file")
	flag.Parse()

	path, err := appconfig.WriteDefault(output, overwrite)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, path)
}
