package main

import (
	"os"

	"github.com/keithlinneman/sitebuilder/internal/sitectl"
)

func main() {
	os.Exit(sitectl.Execute())
}
