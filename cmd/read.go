package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"floppy/adapter"
	"floppy/config"
	"floppy/container"
	"floppy/decoder"
	"floppy/pipeline"
	"floppy/pll"
	"floppy/session"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a floppy disk into an image file",
	Args:  cobra.NoArgs,
	RunE:  runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	profile, err := cat.Get(flagProfile)
	if err != nil {
		return newCLIError(ExitUsage, err)
	}
	variantName := flagFormat
	if variantName == "" && len(profile.Variants) > 0 {
		variantName = profile.Variants[0]
	}
	variant, ok := container.VariantFromName(variantName)
	if !ok {
		return newCLIError(ExitUsage, fmt.Errorf("unknown or unset --format %q", variantName))
	}

	src, err := adapter.Find(ctx, flagController, flagPort)
	if err != nil {
		return newCLIError(ExitNoDevice, err)
	}
	defer src.Close()

	rec := session.New(newSessionID(), session.OperationRead, time.Now().UTC().Format(time.RFC3339))
	rec.Profile = profile.Name
	rec.Format = variantName

	spec := pipeline.TrackSpec{
		PresetName: presetForProfile(profile), Encoding: decoder.EncodingMFM,
		Algorithm: pll.AlgoPI, SectorSize: 512,
	}
	c, trackErrs := pipeline.ReadDisk(ctx, src, variant, profile.Cyls, profile.Heads, flagRetries+1, func(cyl int) pipeline.TrackSpec { return spec })
	for key, terr := range trackErrs {
		rec.Errors = append(rec.Errors, fmt.Sprintf("cyl=%d head=%d: %v", key[0], key[1], terr))
	}
	if len(trackErrs) == profile.Cyls*profile.Heads {
		rec.State = session.StateFailed
		finishAndSave(rec)
		return newCLIError(ExitReadError, fmt.Errorf("every track failed to read"))
	}

	encoded, err := container.Write(c)
	if err != nil {
		rec.State = session.StateFailed
		finishAndSave(rec)
		return newCLIError(ExitReadError, err)
	}

	outPath := flagOutput
	if outPath == "" {
		outPath = "image." + variantName
	}
	if err := os.WriteFile(outPath, encoded, 0644); err != nil {
		return newCLIError(ExitReadError, err)
	}

	sum := sha256.Sum256(encoded)
	rec.Output = session.Output{File: outPath, Hash: hex.EncodeToString(sum[:]), Size: int64(len(encoded))}
	if len(trackErrs) > 0 {
		rec.State = session.StateFailed
	} else {
		rec.State = session.StateSucceeded
	}
	finishAndSave(rec)

	fmt.Printf("Read %d tracks (%d failed), saved to %s\n", profile.Cyls*profile.Heads, len(trackErrs), outPath)
	return nil
}

// presetForProfile picks the PLL preset matching a profile's container
// variants. Every profile currently configured targets IBM-PC-style MFM
// media or 1541-style GCR; a profile naming d64/g64 gets the Commodore 1541
// preset, everything else the standard IBM double-density MFM preset.
func presetForProfile(p config.Profile) string {
	for _, v := range p.Variants {
		if v == "d64" || v == "g64" {
			return "c64_1541"
		}
	}
	return "ibm_dd"
}
