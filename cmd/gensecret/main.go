// Generates a random key suitable for the SECRET_KEY setting.
package main

import (
	"fmt"
	"os"

	"clubhub/internal/secrets"
)

func main() {
	key, err := secrets.Generate()
	if err != nil {
		fmt.Printf("error while generating secret key: %v", err)
		os.Exit(1)
	}

	fmt.Println(key)
}
