// Command hashpw mints a salt and password digest for provisioning accounts
// directly in the database, e.g. seeding a first user before mail delivery is
// configured.
//
// Usage:
//
//	hashpw <password>
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/parityerror/traveltogether/internal/security"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <password>\n", os.Args[0])
		os.Exit(2)
	}

	salt, err := security.GenerateSalt()
	if err != nil {
		log.Fatalf("Failed to generate salt: %v", err)
	}

	digest := security.HashPassword(salt, os.Args[1])

	fmt.Printf("guid:   %s\n", security.NewGUID())
	fmt.Printf("salt:   %s\n", salt)
	fmt.Printf("digest: %s\n", digest)
}
