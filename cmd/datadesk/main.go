// datadesk - in-app helper for the data analysis platform
package main

import (
	"os"

	"github.com/ashureev/datadesk/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
