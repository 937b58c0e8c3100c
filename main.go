// Package main is the main application entrypoint
package main

import (
	"github.com/tawnybot/tawny/cmd"
	"log"
	"os"
)

func main() {
	if err := cmd.New().Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
