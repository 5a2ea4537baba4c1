package cmd

import (
	"fmt"
	"os"

	"floppy/container"

	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:   "copy SRC.IMG DST.IMG",
	Short: "Transcode an image file from one container format to another",
	Args:  cobra.ExactArgs(2),
	RunE:  runCopy,
}

// runCopy never touches hardware: it parses SRC under --format (or, if
// unset, by guessing from SRC's extension) and re-serializes under DST's
// extension. Disk-to-disk copies go through `read` then `write` instead.
func runCopy(cmd *cobra.Command, args []string) error {
	srcPath, dstPath := args[0], args[1]

	srcVariantName := flagFormat
	if srcVariantName == "" {
		srcVariantName = extensionOf(srcPath)
	}
	srcVariant, ok := container.VariantFromName(srcVariantName)
	if !ok {
		return newCLIError(ExitUsage, fmt.Errorf("unknown source format %q", srcVariantName))
	}
	dstVariant, ok := container.VariantFromName(extensionOf(dstPath))
	if !ok {
		return newCLIError(ExitUsage, fmt.Errorf("unknown destination format for %q", dstPath))
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return newCLIError(ExitGenericError, err)
	}
	c, err := container.Parse(srcVariant, raw)
	if err != nil {
		return newCLIError(ExitGenericError, err)
	}

	c.Variant = dstVariant
	out, err := container.Write(c)
	if err != nil {
		return newCLIError(ExitGenericError, fmt.Errorf("cannot transcode %s to %s: %w", srcVariantName, dstVariant, err))
	}
	if err := os.WriteFile(dstPath, out, 0644); err != nil {
		return newCLIError(ExitGenericError, err)
	}

	fmt.Printf("Copied %s (%s) to %s (%s)\n", srcPath, srcVariantName, dstPath, dstVariant)
	return nil
}

// extensionOf returns the lowercase suffix of path after its last '.', or
// "" if path has none.
func extensionOf(path string) string {
	dot := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			dot = i
			break
		}
		if path[i] == '/' {
			break
		}
	}
	if dot < 0 || dot == len(path)-1 {
		return ""
	}
	ext := path[dot+1:]
	out := make([]byte, len(ext))
	for i := 0; i < len(ext); i++ {
		b := ext[i]
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out[i] = b
	}
	return string(out)
}
