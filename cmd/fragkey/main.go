// FragKey - peptide fragmentation and spectrum annotation tool
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ChrisMcGann/FragKey/cmd/fragkey/cmd"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
