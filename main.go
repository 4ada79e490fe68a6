package main

import (
	"github.com/praetorian-inc/approles/cmd"
)

func main() {
	cmd.Execute()
}
