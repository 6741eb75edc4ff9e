// This program performs administrative tasks for the green ledger service.
package main

import (
	"github.com/greenledger/greenledger/app/tooling/admin/cmd"
)

func main() {
	cmd.Execute()
}
