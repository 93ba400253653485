// Package main is the entry point for the registrar service.
//
//	@title			Registrar - User Registration Service
//	@version		1.0
//	@description	Validates and stores user registrations with bcrypt-hashed passwords.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
