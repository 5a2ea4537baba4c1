package cmd

import (
	"fmt"
	"os"
	"sort"

	"floppy/container"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info IMG",
	Short: "Print variant, geometry and metadata for an image file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]

	variantName := flagFormat
	if variantName == "" {
		variantName = extensionOf(path)
	}
	variant, ok := container.VariantFromName(variantName)
	if !ok {
		return newCLIError(ExitUsage, fmt.Errorf("unknown format %q", variantName))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return newCLIError(ExitGenericError, err)
	}
	c, err := container.Parse(variant, raw)
	if err != nil {
		return newCLIError(ExitGenericError, err)
	}

	fmt.Printf("variant:    %s\n", c.Variant)
	fmt.Printf("cylinders:  %d\n", c.Geometry.Cylinders)
	fmt.Printf("heads:      %d\n", c.Geometry.Heads)
	if c.Geometry.Zones != nil {
		fmt.Printf("sectors:    zoned (%d zones)\n", len(c.Geometry.Zones.Zones))
	} else {
		fmt.Printf("sectors:    %d/track\n", c.Geometry.SectorsPerTrack)
	}
	fmt.Printf("sectorsize: %d\n", c.Geometry.SectorSize)
	fmt.Printf("tracks:     %d present\n", len(c.Tracks))
	if len(c.Errata) > 0 {
		fmt.Printf("errata:     %d sector(s) flagged\n", len(c.Errata))
	}

	if len(c.Metadata) > 0 {
		keys := make([]string, 0, len(c.Metadata))
		for k := range c.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("metadata:")
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, c.Metadata[k])
		}
	}
	return nil
}
