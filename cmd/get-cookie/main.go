package main

import (
	"os"

	"github.com/kyupark/get-cookie/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
