package main

import (
	"github.com/muratonnet/asyncemail/pkg/root"

	_ "github.com/muratonnet/asyncemail/pkg/console" // Register commands
)

func main() {
	root.Execute()
}
