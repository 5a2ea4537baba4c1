package cmd

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"floppy/adapter"
	"floppy/container"
	"floppy/decoder"
	"floppy/pipeline"
	"floppy/pll"
	"floppy/session"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify REFERENCE.IMG",
	Short: "Re-read a floppy disk and compare it against a reference image",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	refPath := args[0]

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

	reference, err := os.ReadFile(refPath)
	if err != nil {
		return newCLIError(ExitGenericError, err)
	}

	src, err := adapter.Find(ctx, flagController, flagPort)
	if err != nil {
		return newCLIError(ExitNoDevice, err)
	}
	defer src.Close()

	rec := session.New(newSessionID(), session.OperationVerify, time.Now().UTC().Format(time.RFC3339))
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

	gotSum := sha256.Sum256(encoded)
	wantSum := sha256.Sum256(reference)
	rec.Output = session.Output{File: refPath, Hash: hex.EncodeToString(gotSum[:]), Size: int64(len(encoded))}

	if !bytes.Equal(gotSum[:], wantSum[:]) {
		rec.State = session.StateFailed
		rec.Notes = fmt.Sprintf("hash mismatch: disk=%s reference=%s", hex.EncodeToString(gotSum[:]), hex.EncodeToString(wantSum[:]))
		finishAndSave(rec)
		return newCLIError(ExitVerifyMismatch, fmt.Errorf("disk content does not match %s", refPath))
	}

	rec.State = session.StateSucceeded
	finishAndSave(rec)

	fmt.Printf("Verified: disk matches %s\n", refPath)
	return nil
}
