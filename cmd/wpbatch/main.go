package main

import (
	"os"

	"github.com/blackwell-systems/wpbatch/internal/app"
)

func main() {
	os.Exit(app.Execute())
}
