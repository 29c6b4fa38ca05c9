package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/pipeline"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/region"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/scan"
)

func NewScanCmd(logger func(component string) zerolog.Logger) *cobra.Command {
	var (
		module       string
		instructions int
	)

	cmd := &cobra.Command{
		Use:   "scan <binary>",
		Short: "Find the dimension constructor in a game binary",
		Long: `Scan reads the .text section of an ELF or PE file, or of the library
named by --module inside an APK, and reports where the dimension constructor
starts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger("scan")
			out := cmd.OutOrStdout()

			text, err := region.FileText(args[0], module)
			if err != nil {
				return fmt.Errorf("failed to read code: %w", err)
			}
			log.Debug().Int("bytes", len(text.Data)).Msg("Read .text")

			scanner, err := scan.ForPlatform(text.GOOS, text.GOARCH)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Binary:     %s (%s/%s)\n", args[0], text.GOOS, text.GOARCH)
			fmt.Fprintf(out, ".text:      %#x, %#x bytes at file offset %#x\n", text.Addr, len(text.Data), text.Offset)
			if s, ok := scanner.(scan.VariableWidth); ok {
				fmt.Fprintf(out, "Prologue:   %s\n", s.Prologue)
			}

			base := uintptr(text.Addr)
			match, err := pipeline.Resolve(scanner, text.Data, base)
			fmt.Fprintf(out, "Candidates: %d function starts\n", match.Candidates)
			if errors.Is(err, pipeline.ErrEnclosingFunctionNotFound) {
				fmt.Fprintf(out, "Marker:     %#x\n", match.Marker)
			}
			if err != nil {
				return err
			}

			offset := match.Function - base
			fmt.Fprintf(out, "Marker:     %#x\n", match.Marker)
			fmt.Fprintf(out, "Function:   %#x (file offset %#x)\n", match.Function, text.Offset+uint64(offset))
			for _, line := range scan.Disassemble(text.GOARCH, text.Data[offset:], match.Function, instructions) {
				fmt.Fprintf(out, "  %s\n", line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&module, "module", "m", "libminecraftpe.so", "Library to read when the binary is an APK")
	cmd.Flags().IntVarP(&instructions, "instructions", "n", 8, "Number of instructions to disassemble")
	return cmd
}
