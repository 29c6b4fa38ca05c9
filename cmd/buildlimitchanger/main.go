// Command buildlimitchanger is built with -buildmode=c-shared and loaded into
// the game by a mod loader. Everything happens while the library initialises.
package main

import "C"

import (
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/startup"
)

var mod *startup.Mod

func init() {
	mod = startup.Run()
}

// Loaders call these after dlopen. Exported functions only run once package
// initialisation has finished, so there is nothing left to do.

//export mod_preinit
func mod_preinit() {}

//export mod_init
func mod_init() {}

func main() {}
