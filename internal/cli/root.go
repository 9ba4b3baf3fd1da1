package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Picocrypt/zxcvbn-go"
	"github.com/spf13/cobra"

	"github.com/shumzu/shumzu/internal/log"
	"github.com/shumzu/shumzu/internal/pipeline"
	"github.com/shumzu/shumzu/internal/util"
)

// Version is set by main.go.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "shumzu",
	Short: "Encode a file into a grid of QR codes, or decode it back",
	Long: `shumzu turns a file into a single PNG made of a grid of QR codes — a
"keymaster" — that can be printed, photographed, and scanned back into the
original file. Each QR code carries one block of the file, compressed and
optionally encrypted; the file's integrity is verified on decode via a
whole-file hash carried in the first block.`,
	Version: Version,
	RunE:    run,
}

var (
	flagFile          string
	flagDecode        bool
	flagOutput        string
	flagOutputFolder  string
	flagPassword      string
	flagBlockSize     int
	flagQuiet         bool
	flagYes           bool
	flagDebug         bool
	flagPasswordStdin bool
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	// pflag shorthands are single runes, so the two-letter forms the spec
	// names (-of, -bs) are registered as long-form aliases instead: both
	// --output_folder/--of and --block_size/--bs bind the same variable.
	flags := rootCmd.Flags()
	flags.StringVarP(&flagFile, "file", "f", "", "source file (encode) or composite PNG (decode)")
	flags.BoolVarP(&flagDecode, "decode", "d", false, "switch to decode mode")
	flags.StringVarP(&flagOutput, "output", "o", "", "output PNG path (encode)")
	flags.StringVar(&flagOutputFolder, "output_folder", ".", "output directory (decode)")
	flags.StringVar(&flagOutputFolder, "of", ".", "alias for --output_folder")
	flags.StringVarP(&flagPassword, "password", "p", "", "password; prompted if omitted")
	flags.IntVar(&flagBlockSize, "block_size", pipeline.DefaultBlockSize, "payload block size in bytes")
	flags.IntVar(&flagBlockSize, "bs", pipeline.DefaultBlockSize, "alias for --block_size")
	flags.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress output")
	flags.BoolVarP(&flagYes, "yes", "y", false, "overwrite output without prompting")
	flags.BoolVar(&flagDebug, "debug", false, "enable debug logging to stderr")
	flags.BoolVarP(&flagPasswordStdin, "password_stdin", "P", false, "read password from stdin (non-interactive, e.g. piped input)")

	_ = rootCmd.MarkFlagRequired("file")
}

// globalReporter lets the interrupt handler reach the in-flight reporter.
var globalReporter *Reporter

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		if globalReporter != nil {
			globalReporter.Cancel()
			fmt.Fprintln(os.Stderr, "\nCancelling operation...")
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		// Pipeline errors are already printed by the reporter; errors
		// raised before a reporter exists are printed here.
		if globalReporter == nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func run(cmd *cobra.Command, args []string) error {
	if flagDebug {
		log.EnableDebugLogging()
	}

	if flagDecode {
		return runDecode()
	}
	return runEncode()
}

func runEncode() error {
	if _, err := os.Stat(flagFile); err != nil {
		return fmt.Errorf("input file not found: %s", flagFile)
	}

	outputPath := flagOutput
	if outputPath == "" {
		outputPath = flagFile + ".png"
	}

	if _, err := os.Stat(outputPath); err == nil && !flagYes {
		if !confirmOverwrite(outputPath) {
			return fmt.Errorf("operation cancelled")
		}
	}

	password, err := resolveEncodePassword()
	if err != nil {
		return err
	}
	if len(password) > 0 {
		warnIfWeak(password)
	}

	reporter := NewReporter(flagQuiet)
	globalReporter = reporter

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "Encoding %s -> %s\n", flagFile, outputPath)
	}

	cfg := pipeline.Config{BlockSize: flagBlockSize, Password: []byte(password)}
	result, err := pipeline.Encode(flagFile, outputPath, cfg, reporter)
	reporter.Finish()
	if err != nil {
		reporter.PrintError("%v", err)
		_ = os.Remove(outputPath)
		return err
	}

	reporter.PrintSuccess("Encoded %d block(s) (%dx%d grid) to %s (%s)", result.BlockCount, result.GridColumns, result.GridRows, result.OutputPath, outputSize(result.OutputPath))
	return nil
}

func runDecode() error {
	if _, err := os.Stat(flagFile); err != nil {
		return fmt.Errorf("keymaster PNG not found: %s", flagFile)
	}
	if err := os.MkdirAll(flagOutputFolder, 0755); err != nil {
		return fmt.Errorf("creating output folder: %w", err)
	}

	if flagPasswordStdin && flagPassword == "" {
		pw, err := ReadPasswordFromStdin()
		if err != nil {
			return err
		}
		flagPassword = pw
	}

	reporter := NewReporter(flagQuiet)
	globalReporter = reporter

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "Decoding %s -> %s\n", flagFile, flagOutputFolder)
	}

	cfg := pipeline.Config{
		Password:       []byte(flagPassword),
		PromptPassword: promptDecodePassword,
	}
	result, err := pipeline.Decode(flagFile, flagOutputFolder, cfg, reporter)
	reporter.Finish()
	if err != nil {
		reporter.PrintError("%v", err)
		return err
	}

	reporter.PrintSuccess("Decoded %s (%d block(s), %s)", result.OutputPath, result.BlockCount, outputSize(result.OutputPath))
	return nil
}

// outputSize renders a written file's size for the final status line. A
// stat failure here means the file is gone by the time we report on it,
// which isn't worth failing the whole run over.
func outputSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "size unknown"
	}
	return util.Sizeify(info.Size())
}

// resolveEncodePassword returns the encryption password for an encode run:
// the -p flag value if non-empty (an explicit empty -p is treated like an
// omitted one), otherwise a line from stdin with -P, otherwise no password
// when stdin is not a terminal, otherwise an interactive confirmed prompt
// where an empty answer means "no encryption".
func resolveEncodePassword() (string, error) {
	if flagPassword != "" {
		return flagPassword, nil
	}
	if flagPasswordStdin {
		return ReadPasswordFromStdin()
	}
	if !isTerminal() {
		return "", nil
	}
	pw, err := ReadPasswordInteractive(true)
	if errors.Is(err, ErrPasswordEmpty) {
		return "", nil
	}
	return pw, err
}

// promptDecodePassword is wired into pipeline.Config.PromptPassword: it is
// only invoked when the scan detects encrypted blocks and -p was not given.
func promptDecodePassword() ([]byte, error) {
	if !isTerminal() {
		return nil, fmt.Errorf("password required but stdin is not a terminal")
	}
	pw, err := ReadPasswordInteractive(false)
	if err != nil {
		return nil, err
	}
	return []byte(pw), nil
}

func warnIfWeak(password string) {
	strength := zxcvbn.PasswordStrength(password, nil)
	if strength.Score <= 2 {
		fmt.Fprintf(os.Stderr, "Warning: password strength is weak (score %d/4)\n", strength.Score)
	}
}

func confirmOverwrite(path string) bool {
	fmt.Fprintf(os.Stderr, "Output file %s already exists. Overwrite? [y/N]: ", filepath.Base(path))
	var response string
	fmt.Fscanln(os.Stdin, &response)
	return response == "y" || response == "yes" || response == "Y"
}
