package main

import (
	"github.com/notifun/wa-console/cmd"
)

func main() {
	cmd.Execute()
}
