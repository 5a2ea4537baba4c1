package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"floppy/adapter"
	"floppy/container"
	"floppy/decoder"
	"floppy/pipeline"
	"floppy/pll"
	"floppy/session"
	"floppy/txn"

	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write SRC.IMG",
	Short: "Write an image file to a floppy disk",
	Args:  cobra.ExactArgs(1),
	RunE:  runWrite,
}

func runWrite(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	srcPath := args[0]

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
	if !profile.SupportsVariant(variantName) {
		return newCLIError(ExitUsage, fmt.Errorf("profile %q does not support format %q", profile.Name, variantName))
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return newCLIError(ExitWriteError, err)
	}
	c, err := container.Parse(variant, raw)
	if err != nil {
		return newCLIError(ExitWriteError, err)
	}

	dev, err := adapter.Find(ctx, flagController, flagPort)
	if err != nil {
		return newCLIError(ExitNoDevice, err)
	}
	defer dev.Close()

	rec := session.New(newSessionID(), session.OperationWrite, time.Now().UTC().Format(time.RFC3339))
	rec.Profile = profile.Name
	rec.Format = variantName

	spec := pipeline.TrackSpec{
		PresetName: presetForProfile(profile), Encoding: decoder.EncodingMFM,
		Algorithm: pll.AlgoPI, SectorSize: 512,
	}
	specFor := func(cyl int) pipeline.TrackSpec { return spec }

	var logWriter io.Writer
	if flagTxnLog != "" {
		logFile, err := os.OpenFile(flagTxnLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return newCLIError(ExitWriteError, err)
		}
		defer logFile.Close()
		logWriter = logFile
	}

	autoRollback := !flagNoRollback
	t, err := pipeline.NewWriteTransaction(dev, c, specFor, autoRollback, logWriter)
	if err != nil {
		return newCLIError(ExitWriteError, err)
	}
	if err := t.Commit(ctx); err != nil {
		rec.Errors = append(rec.Errors, err.Error())
		rec.State = session.StateFailed
		switch t.State() {
		case txn.StateRolledBack:
			rec.Notes = "write failed; prior flux restored on every already-written track"
		case txn.StateAborted:
			if backup, berr := txn.EncodeBackup(t); berr == nil {
				backupPath := rec.ID + ".uftb"
				if werr := os.WriteFile(backupPath, backup, 0644); werr == nil {
					rec.Notes = fmt.Sprintf("write failed with rollback disabled; pre-images saved to %s", backupPath)
				}
			}
		}
		finishAndSave(rec)
		return newCLIError(ExitWriteError, err)
	}

	sum := sha256.Sum256(raw)
	rec.Output = session.Output{File: srcPath, Hash: hex.EncodeToString(sum[:]), Size: int64(len(raw))}
	rec.State = session.StateSucceeded
	finishAndSave(rec)

	fmt.Printf("Wrote %s to drive (profile %s)\n", srcPath, profile.Name)
	return nil
}
