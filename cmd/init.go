package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/wadash/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or refresh the configuration file",
	RunE:  runInit,
}

func runInit(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	fmt.Printf("\n%s wadash is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Println("  1. Start the WhatsApp bridge (default ws://localhost:3001)")
	fmt.Printf("     or set driver.kind to \"mock\" in %s\n", cfgPath)
	fmt.Println("  2. Run: wadash serve")
	fmt.Println("  3. Watch: wadash watch")
	return nil
}
