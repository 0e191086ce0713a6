// Command generate-encryption-key prints a fresh AES-256 key for sealing account
// emails at rest.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/itchan-dev/modpolicy/shared/crypto"
)

func main() {
	raw := flag.Bool("raw", false, "print only the key")
	flag.Parse()

	key, err := crypto.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate encryption key: %v\n", err)
		os.Exit(1)
	}

	if *raw {
		fmt.Println(key)
		return
	}

	fmt.Println("Add this to config/private.yaml:")
	fmt.Printf("encryption_key: %q\n", key)
	fmt.Println()
	fmt.Println("Sealed emails cannot be opened without this key. Back it up and keep it out of version control.")
}
