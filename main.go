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
			fmt.Fprintln(os.Stderr, "usage: shiftrecon init [--config shiftrecon.yaml] [--env-file .env] [--force]")
			fmt.Fprintln(os.Stderr, "       shiftrecon reconcile --in book.xlsx [--out result.xlsx] [--clock-export avaris.xls] [--html summary.html] [--dry-run] [--no-backup]")
			fmt.Fprintln(os.Stderr, "       shiftrecon serve [--addr :8080]")
			fmt.Fprintln(os.Stderr, "       shiftrecon watch --inbox dir --outbox dir")
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
