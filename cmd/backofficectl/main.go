// Command backofficectl is the operator CLI of the back office: document
// number previews, payment status checks, overdue invoices and expiring
// driver licenses.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd(openPostgres).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
