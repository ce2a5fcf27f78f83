package main

import (
	"github.com/cuemby/factengine/pkg/authorization"
	"github.com/cuemby/factengine/pkg/engine"
	"github.com/spf13/cobra"
)

// openEngine constructs an Engine from the root command's persistent
// flags. The CLI defaults to a permissive authorization policy: with
// no rules registered there is no other way for `fact save` to ever
// succeed, and this binary never claims to be a production server.
func openEngine(cmd *cobra.Command) (*engine.Engine, error) {
	storeDir, _ := cmd.Root().PersistentFlags().GetString("store-dir")
	return engine.New(engine.Config{
		StoreDir:      storeDir,
		DefaultPolicy: authorization.DefaultPermissive,
	})
}
