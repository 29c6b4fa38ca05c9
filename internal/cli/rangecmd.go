package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/rangeval"
)

func NewRangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Convert between packed height ranges and their bounds",
	}

	cmd.AddCommand(numericArgs(&cobra.Command{
		Use:   "decode <packed>",
		Short: "Split a packed range (decimal or 0x hex) into min and max",
		RunE: func(cmd *cobra.Command, args []string) error {
			packed, err := parsePacked(args[0])
			if err != nil {
				return err
			}
			high, low := rangeval.Split(packed)
			fmt.Fprintf(cmd.OutOrStdout(), "min %d max %d\n", low, high)
			return nil
		},
	}, 1))

	var align bool
	encode := &cobra.Command{
		Use:   "encode <min> <max>",
		Short: "Pack min and max into one value",
		RunE: func(cmd *cobra.Command, args []string) error {
			low, err := parseBound(args[0])
			if err != nil {
				return err
			}
			high, err := parseBound(args[1])
			if err != nil {
				return err
			}
			if align {
				low, high = rangeval.Align(low, false), rangeval.Align(high, true)
			}
			packed := rangeval.Combine(high, low)
			fmt.Fprintf(cmd.OutOrStdout(), "0x%08x (%d)\n", uint32(packed), packed)
			return nil
		},
	}
	encode.Flags().BoolVar(&align, "align", false, "Align the bounds to whole sub-chunks first")
	cmd.AddCommand(numericArgs(encode, 2))

	return cmd
}

// parsePacked accepts any 32-bit pattern, signed or not.
func parsePacked(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if v < math.MinInt32 || v > math.MaxUint32 {
		return 0, fmt.Errorf("range %s does not fit in 32 bits", s)
	}
	return int32(uint32(v)), nil
}

func parseBound(s string) (int16, error) {
	v, err := strconv.ParseInt(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid bound %q: %w", s, err)
	}
	return int16(v), nil
}

// numericArgs lets cmd take negative numbers as its n positional arguments.
// The flag parser would otherwise read "-64" as a cluster of shorthand flags.
func numericArgs(cmd *cobra.Command, n int) *cobra.Command {
	run := cmd.RunE
	cmd.DisableFlagParsing = true
	cmd.Args = cobra.ArbitraryArgs
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		// InheritedFlags merges the persistent flags of the parents into
		// cmd.Flags as a side effect.
		cmd.InheritedFlags()
		fs := cmd.Flags()
		if err := fs.Parse(reorderArgs(fs, args)); err != nil {
			return err
		}
		if help, _ := fs.GetBool("help"); help {
			return cmd.Help()
		}
		if err := cobra.ExactArgs(n)(cmd, fs.Args()); err != nil {
			return err
		}
		return run(cmd, fs.Args())
	}
	return cmd
}

// reorderArgs moves flags in front of a "--" and keeps numbers, including
// negative ones, as positional arguments in their original order.
func reorderArgs(fs *pflag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case a == "-" || !strings.HasPrefix(a, "-") || isNumber(a):
			positional = append(positional, a)
		default:
			flags = append(flags, a)
			if takesValue(fs, a) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		}
	}
	return append(append(flags, "--"), positional...)
}

func isNumber(s string) bool {
	_, err := strconv.ParseInt(s, 0, 64)
	return err == nil
}

func takesValue(fs *pflag.FlagSet, arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	var f *pflag.Flag
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		f = fs.Lookup(name)
	} else if len(arg) == 2 {
		f = fs.ShorthandLookup(arg[1:])
	}
	return f != nil && f.NoOptDefVal == ""
}
