package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/shiftrecon/internal/shiftreconcli"
)

func main() {
	if err := shiftreconcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, shiftreconcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			shiftreconcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
